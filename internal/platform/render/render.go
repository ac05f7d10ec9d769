// Package render lays out report documents as PDF.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Card is a labelled figure shown in the summary block.
type Card struct {
	Label string
	Value string
}

// Table is a titled grid. Widths are in millimetres; a zero width shares the
// remaining page width.
type Table struct {
	Title   string
	Headers []string
	Widths  []float64
	Rows    [][]string
	Empty   string
}

// Document is the renderer-independent description of a report.
type Document struct {
	Title    string
	Subtitle string
	Cards    []Card
	Tables   []Table
	Footer   string
}

// Renderer turns a Document into bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

// PDF renders documents on A4 portrait pages.
type PDF struct {
	Font string
}

func NewPDF() *PDF {
	return &PDF{Font: "Arial"}
}

const (
	pageMargin   = 10.0
	contentWidth = 210.0 - 2*pageMargin
	rowHeight    = 7.0
)

func (p *PDF) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, errors.New("document title is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(p.Font, "B", 16)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont(p.Font, "", 11)
		pdf.SetTextColor(80, 80, 80)
		pdf.CellFormat(0, 7, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	p.cards(pdf, tr, doc.Cards)
	for _, t := range doc.Tables {
		if err := p.table(pdf, tr, t); err != nil {
			return nil, err
		}
	}

	if doc.Footer != "" {
		pdf.Ln(6)
		pdf.SetFont(p.Font, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 4, tr(doc.Footer), "", "R", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PDF) cards(pdf *gofpdf.Fpdf, tr func(string) string, cards []Card) {
	if len(cards) == 0 {
		return
	}
	for _, c := range cards {
		pdf.SetFont(p.Font, "B", 10)
		pdf.SetFillColor(235, 240, 248)
		pdf.CellFormat(70, rowHeight+1, tr(c.Label), "1", 0, "L", true, 0, "")
		pdf.SetFont(p.Font, "", 10)
		pdf.CellFormat(0, rowHeight+1, tr(c.Value), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (p *PDF) table(pdf *gofpdf.Fpdf, tr func(string) string, t Table) error {
	widths, err := columnWidths(t)
	if err != nil {
		return err
	}

	if t.Title != "" {
		pdf.SetFont(p.Font, "B", 12)
		pdf.CellFormat(0, 9, tr(t.Title), "", 1, "L", false, 0, "")
	}

	pdf.SetFont(p.Font, "B", 9)
	pdf.SetFillColor(210, 220, 235)
	for i, h := range t.Headers {
		pdf.CellFormat(widths[i], rowHeight, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(p.Font, "", 9)
	if len(t.Rows) == 0 {
		msg := t.Empty
		if msg == "" {
			msg = "-"
		}
		pdf.CellFormat(contentWidth, rowHeight, tr(msg), "1", 1, "C", false, 0, "")
		pdf.Ln(4)
		return nil
	}

	for n, row := range t.Rows {
		pdf.SetFillColor(245, 245, 245)
		fill := n%2 == 1
		for i := range t.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], rowHeight, tr(truncate(cell, widths[i])), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
	return nil
}

func columnWidths(t Table) ([]float64, error) {
	if len(t.Headers) == 0 {
		return nil, fmt.Errorf("table %q has no columns", t.Title)
	}
	widths := make([]float64, len(t.Headers))
	used, flexible := 0.0, 0
	for i := range t.Headers {
		if i < len(t.Widths) && t.Widths[i] > 0 {
			widths[i] = t.Widths[i]
			used += t.Widths[i]
		} else {
			flexible++
		}
	}
	if flexible > 0 {
		share := (contentWidth - used) / float64(flexible)
		if share <= 0 {
			return nil, fmt.Errorf("table %q columns exceed page width", t.Title)
		}
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths, nil
}

// truncate keeps cell text roughly within its column at 9pt.
func truncate(s string, width float64) string {
	max := int(width / 1.8)
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
