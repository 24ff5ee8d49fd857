package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxZipEntrySize limits the decompressed size of a single docx zip entry
// to keep a malformed archive from exhausting memory (100 MB).
const maxZipEntrySize = 100 << 20

// DocumentText extracts plain text from a PDF or Word document. Legacy
// .doc files are tried as docx first since many are mislabeled; a genuine
// old-format .doc fails with an error the caller can surface.
func DocumentText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDFText(path)
	case ".docx", ".doc":
		return DOCXText(path)
	default:
		return "", fmt.Errorf("unsupported document type %s", filepath.Ext(path))
	}
}

// PDFText extracts the plain text of every page of a PDF, pages joined by
// blank lines.
func PDFText(path string) (text string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if len(content) == 0 {
		return "", fmt.Errorf("empty pdf %s", path)
	}
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf %s: %v", path, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// DOCXText extracts paragraph text from a Word document by streaming the
// OOXML tokens of word/document.xml, without building a DOM.
func DOCXText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	docXML, err := docxDocumentXML(zr)
	if err != nil {
		return "", fmt.Errorf("docx %s: %w", path, err)
	}
	text, err := docxParagraphs(docXML)
	if err != nil {
		return "", fmt.Errorf("docx %s: %w", path, err)
	}
	return text, nil
}

func docxDocumentXML(zr *zip.Reader) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxZipEntrySize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxZipEntrySize {
			return nil, fmt.Errorf("document.xml exceeds %d byte limit", maxZipEntrySize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing word/document.xml")
}

// docxParagraphs walks the XML token stream collecting run text. Table
// cells contain ordinary paragraph elements, so tracking w:p and w:r is
// enough to capture their text too. Paragraphs are joined by blank lines;
// w:tab and w:br become whitespace.
func docxParagraphs(data []byte) (string, error) {
	var (
		b           strings.Builder
		para        []string
		inParagraph bool
		inRun       bool
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(para, ""))
		para = para[:0]
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
			case "r":
				inRun = true
			case "tab":
				if inRun {
					para = append(para, "\t")
				}
			case "br":
				if inRun {
					para = append(para, "\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				inParagraph = false
				flush()
			case "r":
				inRun = false
			}
		case xml.CharData:
			if inParagraph && inRun {
				para = append(para, string(t))
			}
		}
	}
	flush()
	return b.String(), nil
}
