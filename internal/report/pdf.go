// Package report renders comparison and scenario results as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Simplici0/blackmass/internal/app"
	"github.com/Simplici0/blackmass/internal/comparison"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
	rowHeight    = 7.0
)

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	now time.Time
}

func newDocument(now time.Time) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), now: now}
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *document) title(text, subtitle string) {
	d.pdf.AddPage()
	d.pdf.SetFont("Arial", "B", 18)
	d.pdf.SetTextColor(0, 51, 102)
	d.pdf.CellFormat(contentWidth, 10, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.SetTextColor(80, 80, 80)
	d.pdf.CellFormat(contentWidth, 6, d.tr(subtitle), "", 1, "L", false, 0, "")
	d.pdf.CellFormat(contentWidth, 6, "Generated: "+d.now.Format("2 January 2006"), "", 1, "L", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) heading(text string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Arial", "B", 12)
	d.pdf.SetTextColor(0, 51, 102)
	d.pdf.CellFormat(contentWidth, 8, d.tr(text), "", 1, "L", false, 0, "")
}

// table writes a header row and body rows with equal column widths, the
// first column twice as wide as the rest.
func (d *document) table(header []string, rows [][]string) {
	widths := columnWidths(len(header))

	d.pdf.SetFont("Arial", "B", 9)
	d.pdf.SetFillColor(230, 236, 245)
	d.pdf.SetTextColor(0, 0, 0)
	for i, h := range header {
		d.pdf.CellFormat(widths[i], rowHeight, d.tr(h), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Arial", "", 9)
	d.pdf.SetTextColor(50, 50, 50)
	for n, row := range rows {
		fill := n%2 == 1
		d.pdf.SetFillColor(245, 247, 250)
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			d.pdf.CellFormat(widths[i], rowHeight, d.tr(cell), "1", 0, align, fill, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) lines(items []string) {
	d.pdf.SetFont("Arial", "", 9)
	d.pdf.SetTextColor(50, 50, 50)
	for _, item := range items {
		d.pdf.MultiCell(contentWidth, 5, d.tr("- "+item), "", "L", false)
	}
}

func columnWidths(n int) []float64 {
	if n == 0 {
		return nil
	}
	unit := contentWidth / float64(n+1)
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = unit
	}
	widths[0] = unit * 2
	return widths
}

func money(v float64) string   { return fmt.Sprintf("%.2f", v) }
func percent(v float64) string { return fmt.Sprintf("%.2f%%", v) }
func number(v float64) string  { return fmt.Sprintf("%.3f", v) }

// Comparison renders the economic, efficiency, phase metric and difference
// tables of a comparison.
func Comparison(result comparison.Result, now time.Time) ([]byte, error) {
	d := newDocument(now)
	d.title("Pilot Comparison", "Base: "+result.Base)

	d.heading("Economics")
	rows := make([][]string, 0, len(result.Economic))
	for _, r := range result.Economic {
		rows = append(rows, []string{r.Source, money(r.CapexTotal), money(r.OpexTotal), percent(r.OverallEfficiency)})
	}
	d.table([]string{"Source", "CAPEX", "OPEX", "Overall efficiency"}, rows)

	d.heading("Material recovery")
	rows = rows[:0]
	for _, r := range result.Efficiency {
		rows = append(rows, []string{r.Source + " / " + r.Material, number(r.InitialMass), number(r.RecoveredMass), percent(r.Efficiency)})
	}
	d.table([]string{"Source / Material", "Initial kg", "Recovered kg", "Efficiency"}, rows)

	d.heading("Phase totals")
	rows = rows[:0]
	for _, m := range result.Metrics {
		rows = append(rows, []string{m.Source, number(m.TotalMass), number(m.TotalVolume), number(m.AverageRatio)})
	}
	d.table([]string{"Source", "Mass kg", "Volume L", "Avg S/L"}, rows)

	d.heading("Difference vs " + result.Base)
	rows = rows[:0]
	for _, r := range result.Diffs {
		rows = append(rows, []string{r.Source, r.Capex.String(), r.Opex.String(), r.TotalMass.String(), r.TotalVolume.String(), r.AverageRatio.String()})
	}
	d.table([]string{"Source", "CAPEX", "OPEX", "Mass", "Volume", "Avg S/L"}, rows)

	if len(result.Warnings) > 0 {
		d.heading("Warnings")
		d.lines(result.Warnings)
	}
	return d.bytes()
}

// Scenario renders the results of a single scenario.
func Scenario(res app.Results, now time.Time) ([]byte, error) {
	d := newDocument(now)
	d.title(res.Name, "Scenario results")

	d.heading("Assumptions")
	d.lines(res.Assumptions)

	d.heading("CAPEX")
	rows := make([][]string, 0, len(res.Economics.Breakdown.Capex)+1)
	for _, l := range res.Economics.Breakdown.Capex {
		rows = append(rows, []string{l.Name, money(l.Cost)})
	}
	rows = append(rows, []string{"Total", money(res.Economics.Totals.Capex)})
	d.table([]string{"Item", "Cost"}, rows)

	d.heading("OPEX per batch")
	rows = rows[:0]
	for _, l := range res.Economics.Breakdown.Opex {
		rows = append(rows, []string{l.Name, money(l.Cost)})
	}
	rows = append(rows, []string{"Total", money(res.Economics.Totals.Opex)})
	rows = append(rows, []string{"Per kg black mass", money(res.Economics.Totals.CostPerKg)})
	d.table([]string{"Item", "Cost"}, rows)

	d.heading("Material recovery")
	rows = rows[:0]
	for _, m := range res.Technical.Materials {
		rows = append(rows, []string{m.Material, number(m.InitialMass), number(m.RecoveredMass), percent(m.Efficiency)})
	}
	rows = append(rows, []string{"Overall", "", number(res.Technical.TotalRecovered), percent(res.Technical.OverallEfficiency)})
	d.table([]string{"Material", "Initial kg", "Recovered kg", "Efficiency"}, rows)

	d.heading("Solid/liquid ratios")
	rows = rows[:0]
	for _, r := range res.Technical.Ratios {
		rows = append(rows, []string{r.Phase, r.MassType, r.Liquid, number(r.Ratio)})
	}
	d.table([]string{"Phase", "Mass", "Liquid", "kg/L"}, rows)

	if len(res.Technical.Advisories) > 0 {
		d.heading("Advisories")
		d.lines(res.Technical.Advisories)
	}
	return d.bytes()
}
