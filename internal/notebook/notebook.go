// Package notebook reads cell sources from Jupyter .ipynb documents.
package notebook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pkt.systems/balletsubmit/schema"
)

// LastCodeCell selects the last non-blank code cell.
const LastCodeCell = -1

// Cell is one notebook cell.
type Cell struct {
	Type   string
	Source string
}

type document struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
}

// Parse decodes an nbformat 4 document.
func Parse(r io.Reader) ([]Cell, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	cells := make([]Cell, 0, len(doc.Cells))
	for i, raw := range doc.Cells {
		src, err := decodeSource(raw.Source)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		cells = append(cells, Cell{Type: raw.CellType, Source: src})
	}
	return cells, nil
}

// source is either a string or a list of lines.
func decodeSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("decode source: %w", err)
	}
	return strings.Join(lines, ""), nil
}

// CodeCell returns the source of the code cell at index (counting code cells
// only), or of the last non-blank code cell for LastCodeCell.
func CodeCell(cells []Cell, index int) (string, error) {
	var code []string
	for _, c := range cells {
		if c.Type == "code" {
			code = append(code, c.Source)
		}
	}
	if index == LastCodeCell {
		for i := len(code) - 1; i >= 0; i-- {
			if strings.TrimSpace(code[i]) != "" {
				return code[i], nil
			}
		}
		return "", schema.ErrCellNotFound
	}
	if index < 0 || index >= len(code) {
		return "", fmt.Errorf("%w: code cell %d of %d", schema.ErrCellNotFound, index, len(code))
	}
	return code[index], nil
}

// ReadCodeCell parses r and selects a code cell.
func ReadCodeCell(r io.Reader, index int) (string, error) {
	cells, err := Parse(r)
	if err != nil {
		return "", err
	}
	return CodeCell(cells, index)
}
