package comparison

import (
	"sort"

	"github.com/Simplici0/blackmass/internal/technical"
)

// PivotKey identifies one pivot column.
type PivotKey struct {
	Phase    string `json:"phase"`
	MassType string `json:"mass_type"`
	Liquid   string `json:"liquid"`
}

// PivotCell holds the values of one (source, column) pair.
type PivotCell struct {
	Mass   float64 `json:"mass"`
	Volume float64 `json:"volume"`
	Ratio  float64 `json:"ratio"`
}

// PivotRow is one source across every pivot column.
type PivotRow struct {
	Source string      `json:"source"`
	Cells  []PivotCell `json:"cells"`
}

// Pivot re-indexes mass/volume rows by source × (phase, mass type, liquid).
type Pivot struct {
	Columns []PivotKey `json:"columns"`
	Rows    []PivotRow `json:"rows"`
}

// PivotRows builds a rectangular pivot. Columns are sorted by phase with the
// Overall column last within each phase; cells a source lacks are 0.
func PivotRows(sources []string, rows []MassVolumeRow) Pivot {
	index := make(map[PivotKey]int)
	var columns []PivotKey
	for _, r := range rows {
		k := PivotKey{Phase: r.Phase, MassType: r.MassType, Liquid: r.Liquid}
		if _, ok := index[k]; ok {
			continue
		}
		index[k] = len(columns)
		columns = append(columns, k)
	}

	sort.Slice(columns, func(i, j int) bool {
		a, b := columns[i], columns[j]
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		ao, bo := a.MassType == technical.OverallLabel, b.MassType == technical.OverallLabel
		if ao != bo {
			return bo
		}
		if a.MassType != b.MassType {
			return a.MassType < b.MassType
		}
		return a.Liquid < b.Liquid
	})
	for i, k := range columns {
		index[k] = i
	}

	bySource := make(map[string]int, len(sources))
	out := Pivot{Columns: columns, Rows: make([]PivotRow, len(sources))}
	for i, name := range sources {
		bySource[name] = i
		out.Rows[i] = PivotRow{Source: name, Cells: make([]PivotCell, len(columns))}
	}

	for _, r := range rows {
		i, ok := bySource[r.Source]
		if !ok {
			continue
		}
		col := index[PivotKey{Phase: r.Phase, MassType: r.MassType, Liquid: r.Liquid}]
		out.Rows[i].Cells[col] = PivotCell{Mass: r.Mass, Volume: r.Volume, Ratio: r.Ratio}
	}
	return out
}

// Cell returns the value of source at column k.
func (p Pivot) Cell(source string, k PivotKey) (PivotCell, bool) {
	col := -1
	for i, c := range p.Columns {
		if c == k {
			col = i
			break
		}
	}
	if col < 0 {
		return PivotCell{}, false
	}
	for _, r := range p.Rows {
		if r.Source == source {
			return r.Cells[col], true
		}
	}
	return PivotCell{}, false
}
