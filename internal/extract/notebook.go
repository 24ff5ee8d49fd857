package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Notebook is a parsed Jupyter notebook, reduced to cell types and sources.
type Notebook struct {
	Cells []Cell
}

type Cell struct {
	Type   string
	Source string
}

type rawNotebook struct {
	Cells []rawCell `json:"cells"`
}

type rawCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
}

// LoadNotebook reads and parses a .ipynb file. Notebooks exported by
// broken tooling show up often enough that parsing is deliberately
// forgiving: trailing garbage after the JSON document is ignored, and a
// notebook that was JSON-encoded twice (the whole document wrapped in a
// JSON string) is unwrapped and parsed again.
func LoadNotebook(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notebook %s: %w", path, err)
	}
	nb, err := ParseNotebook(data)
	if err != nil {
		return nil, fmt.Errorf("parsing notebook %s: %w", path, err)
	}
	return nb, nil
}

// ParseNotebook parses notebook JSON from memory. See LoadNotebook for the
// recovery behavior.
func ParseNotebook(data []byte) (*Notebook, error) {
	var raw rawNotebook
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		// Double-encoded notebook: the document is a JSON string
		// containing the real JSON document.
		var wrapped string
		sdec := json.NewDecoder(bytes.NewReader(data))
		if serr := sdec.Decode(&wrapped); serr == nil {
			if err2 := json.Unmarshal([]byte(wrapped), &raw); err2 != nil {
				return nil, err2
			}
		} else {
			return nil, err
		}
	}
	nb := &Notebook{Cells: make([]Cell, 0, len(raw.Cells))}
	for _, c := range raw.Cells {
		nb.Cells = append(nb.Cells, Cell{Type: c.CellType, Source: cellSource(c.Source)})
	}
	return nb, nil
}

// cellSource handles the two source encodings the notebook format allows:
// a plain string or a list of line strings.
func cellSource(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var lines []string
	if json.Unmarshal(raw, &lines) == nil {
		return strings.Join(lines, "")
	}
	return ""
}

// CodeCells returns the sources of non-empty code cells in order.
func (nb *Notebook) CodeCells() []string {
	var out []string
	for _, c := range nb.Cells {
		if c.Type != "code" {
			continue
		}
		if strings.TrimSpace(c.Source) == "" {
			continue
		}
		out = append(out, c.Source)
	}
	return out
}

// MarkdownCells returns the sources of non-empty markdown cells in order.
func (nb *Notebook) MarkdownCells() []string {
	var out []string
	for _, c := range nb.Cells {
		if c.Type != "markdown" {
			continue
		}
		if strings.TrimSpace(c.Source) == "" {
			continue
		}
		out = append(out, c.Source)
	}
	return out
}

// Script renders the notebook's code cells as a single runnable Python
// script, each cell introduced by the conventional "# In[ ]:" marker.
func (nb *Notebook) Script() string {
	cells := nb.CodeCells()
	parts := make([]string, 0, len(cells))
	for _, src := range cells {
		parts = append(parts, "# In[ ]:\n"+src)
	}
	return strings.Join(parts, "\n\n")
}
