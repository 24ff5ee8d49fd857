package extract_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marklab/marksman/internal/extract"
)

const sampleNotebook = `{
  "cells": [
    {"cell_type": "markdown", "source": ["# Problem 1\n", "Load the dataset."]},
    {"cell_type": "code", "source": ["import pandas as pd\n", "df = pd.read_csv('data.csv')"]},
    {"cell_type": "code", "source": "   \n"},
    {"cell_type": "code", "source": "df.describe()"},
    {"cell_type": "markdown", "source": "The mean is stable."}
  ],
  "metadata": {},
  "nbformat": 4,
  "nbformat_minor": 5
}`

func TestParseNotebook(t *testing.T) {
	nb, err := extract.ParseNotebook([]byte(sampleNotebook))
	if err != nil {
		t.Fatalf("ParseNotebook failed: %v", err)
	}
	if len(nb.Cells) != 5 {
		t.Fatalf("expected 5 cells, got %d", len(nb.Cells))
	}

	code := nb.CodeCells()
	if len(code) != 2 {
		t.Fatalf("expected 2 non-empty code cells, got %d", len(code))
	}
	if !strings.HasPrefix(code[0], "import pandas") {
		t.Errorf("unexpected first code cell: %q", code[0])
	}

	md := nb.MarkdownCells()
	if len(md) != 2 {
		t.Fatalf("expected 2 markdown cells, got %d", len(md))
	}
	if !strings.HasPrefix(md[0], "# Problem 1") {
		t.Errorf("unexpected first markdown cell: %q", md[0])
	}
}

func TestNotebookScript(t *testing.T) {
	nb, err := extract.ParseNotebook([]byte(sampleNotebook))
	if err != nil {
		t.Fatalf("ParseNotebook failed: %v", err)
	}
	script := nb.Script()
	if !strings.HasPrefix(script, "# In[ ]:\nimport pandas") {
		t.Errorf("script missing cell marker prefix: %q", script)
	}
	if !strings.Contains(script, "\n\n# In[ ]:\ndf.describe()") {
		t.Errorf("script missing second cell: %q", script)
	}
	if strings.Count(script, "# In[ ]:") != 2 {
		t.Errorf("expected 2 cell markers, got %d", strings.Count(script, "# In[ ]:"))
	}
}

func TestParseNotebookDoubleEncoded(t *testing.T) {
	wrapped, err := json.Marshal(sampleNotebook)
	if err != nil {
		t.Fatal(err)
	}
	nb, err := extract.ParseNotebook(wrapped)
	if err != nil {
		t.Fatalf("ParseNotebook failed on double-encoded input: %v", err)
	}
	if len(nb.CodeCells()) != 2 {
		t.Errorf("expected 2 code cells, got %d", len(nb.CodeCells()))
	}
}

func TestParseNotebookTrailingGarbage(t *testing.T) {
	data := sampleNotebook + "\ngarbage after the document"
	nb, err := extract.ParseNotebook([]byte(data))
	if err != nil {
		t.Fatalf("ParseNotebook failed on trailing garbage: %v", err)
	}
	if len(nb.CodeCells()) != 2 {
		t.Errorf("expected 2 code cells, got %d", len(nb.CodeCells()))
	}
}

func TestParseNotebookInvalid(t *testing.T) {
	_, err := extract.ParseNotebook([]byte("not json at all"))
	if err == nil {
		t.Fatal("expected error for invalid notebook")
	}
}

func TestLoadNotebook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.ipynb")
	if err := os.WriteFile(path, []byte(sampleNotebook), 0o644); err != nil {
		t.Fatal(err)
	}
	nb, err := extract.LoadNotebook(path)
	if err != nil {
		t.Fatalf("LoadNotebook failed: %v", err)
	}
	if len(nb.Cells) != 5 {
		t.Errorf("expected 5 cells, got %d", len(nb.Cells))
	}

	md, err := extract.Markdown(path)
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(md, "# Problem 1") || !strings.Contains(md, "The mean is stable.") {
		t.Errorf("unexpected markdown: %q", md)
	}
}
