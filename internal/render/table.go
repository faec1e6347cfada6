package render

import (
	"fmt"

	"github.com/danmuck/notesctl/internal/archive"
	"github.com/danmuck/notesctl/internal/logs"
	"github.com/danmuck/notesctl/internal/markup"
)

const (
	keyColumns     = "crColumns"
	keyRows        = "crRows"
	keyCellColumns = "cellColumns"
)

// Grid is a resolved table: column and row ids in display order and the
// cell documents keyed by column then row.
type Grid struct {
	Columns []archive.Key
	Rows    []archive.Key
	Cells   map[archive.Key]map[archive.Key]Document
}

func (g Grid) Cell(col, row archive.Key) (Document, bool) {
	doc, ok := g.Cells[col][row]
	return doc, ok
}

// GridFromValue reads the resolved root of a table archive.
func GridFromValue(v archive.Value) (Grid, error) {
	g := Grid{Cells: make(map[archive.Key]map[archive.Key]Document)}
	if v.Kind != archive.KindMap {
		return g, fmt.Errorf("%w: table root is %s", archive.ErrMalformedArchive, v.Kind)
	}
	var err error
	if g.Columns, err = keyList(v.Map, keyColumns); err != nil {
		return g, err
	}
	if g.Rows, err = keyList(v.Map, keyRows); err != nil {
		return g, err
	}
	cells, ok := v.Map.Field(keyCellColumns)
	if !ok || cells.Kind != archive.KindMap {
		return g, nil
	}
	for _, col := range cells.Map.Keys() {
		rows, _ := cells.Map.Get(col)
		if rows.Kind != archive.KindMap {
			continue
		}
		byRow := make(map[archive.Key]Document, rows.Map.Len())
		for _, row := range rows.Map.Keys() {
			cell, _ := rows.Map.Get(row)
			if cell.Kind == archive.KindText {
				byRow[row] = DocumentFromMessage(cell.Text)
			}
		}
		g.Cells[col] = byRow
	}
	return g, nil
}

func keyList(m *archive.Map, name string) ([]archive.Key, error) {
	v, ok := m.Field(name)
	if !ok {
		return nil, nil
	}
	if v.Kind != archive.KindList {
		return nil, fmt.Errorf("%w: %s is %s", archive.ErrMalformedArchive, name, v.Kind)
	}
	out := make([]archive.Key, 0, len(v.List))
	for _, item := range v.List {
		k, ok := item.Key()
		if !ok {
			return nil, fmt.Errorf("%w: %s holds %s", archive.ErrMalformedArchive, name, item.Kind)
		}
		out = append(out, k)
	}
	return out, nil
}

// Table renders a grid. The header row has one empty th per column. A cell
// whose document is inconsistent renders as an empty td.
func Table(g Grid) (*markup.Node, error) {
	header := markup.Element("tr")
	for range g.Columns {
		header.Append(markup.Element("th"))
	}
	root := markup.Element("table", markup.Element("thead", header))
	for _, row := range g.Rows {
		tr := markup.Element("tr")
		for _, col := range g.Columns {
			td := markup.Element("td")
			if doc, ok := g.Cell(col, row); ok {
				content, err := Text(doc, nil)
				if err != nil {
					logs.Warnf("render.Table col=%v row=%v: cell left empty: %v", col, row, err)
				} else {
					td.Append(content)
				}
			}
			tr.Append(td)
		}
		root.Append(tr)
	}
	return root, nil
}
