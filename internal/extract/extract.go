// Package extract pulls gradeable text out of the file formats students
// hand in: Python sources, Jupyter notebooks, PDF and Word documents, and
// plain text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Kind classifies a submission file by extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindCode         // .py
	KindNotebook     // .ipynb
	KindDocument     // .pdf, .docx, .doc
	KindText         // .txt
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindNotebook:
		return "notebook"
	case KindDocument:
		return "document"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// KindOf classifies path by its extension, case-insensitively.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return KindCode
	case ".ipynb":
		return KindNotebook
	case ".pdf", ".docx", ".doc":
		return KindDocument
	case ".txt":
		return KindText
	default:
		return KindUnknown
	}
}

// Recognized reports whether path has an extension the grader handles.
func Recognized(path string) bool {
	return KindOf(path) != KindUnknown
}

// ReadText reads path and decodes it leniently: valid UTF-8 passes through,
// anything else is treated as ISO-8859-1 so stray high bytes in student
// files never abort a run.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return DecodeLenient(data), nil
}

// DecodeLenient converts raw bytes to a string, falling back to ISO-8859-1
// when the input is not valid UTF-8.
func DecodeLenient(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// Code returns the runnable source of a code-bearing file: the file itself
// for .py and .txt, the concatenated code cells for a notebook.
func Code(path string) (string, error) {
	switch KindOf(path) {
	case KindCode, KindText:
		return ReadText(path)
	case KindNotebook:
		nb, err := LoadNotebook(path)
		if err != nil {
			return "", err
		}
		return nb.Script(), nil
	default:
		return "", fmt.Errorf("no code in %s files", filepath.Ext(path))
	}
}

// Markdown returns the markdown cells of a notebook joined by blank lines.
func Markdown(path string) (string, error) {
	nb, err := LoadNotebook(path)
	if err != nil {
		return "", err
	}
	return strings.Join(nb.MarkdownCells(), "\n\n"), nil
}
