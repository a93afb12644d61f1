package service

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Harinie05/HRM-sub002/internal/domain/model"
	"github.com/Harinie05/HRM-sub002/internal/resource"
)

const (
	pdfPageWidth = 277.0 // A4 landscape минус поля 10 мм
	pdfRowHeight = 7.0
)

// ExportPDF выводит таблицу записей ресурса в PDF (A4, альбомная).
func ExportPDF(w io.Writer, res *resource.Resource, records []model.Record, organization string, at time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(res.Title, true)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(res.Title))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	subtitle := fmt.Sprintf("%d records, generated %s", len(records), at.Format("2006-01-02 15:04"))
	if organization != "" {
		subtitle = organization + " | " + subtitle
	}
	pdf.Cell(0, 6, tr(subtitle))
	pdf.Ln(10)

	cols := res.Columns
	if len(cols) == 0 {
		cols = []resource.Column{{Field: res.Display, Label: res.Singular}}
	}
	width := pdfPageWidth / float64(len(cols))

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 236, 245)
		for _, c := range cols {
			pdf.CellFormat(width, pdfRowHeight, fit(pdf, tr(c.Label), width), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, rec := range records {
		for _, c := range cols {
			pdf.CellFormat(width, pdfRowHeight, fit(pdf, tr(rec.Text(c.Field)), width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("формирование PDF %s: %w", res.Key, err)
	}
	return nil
}

// fit обрезает текст до ширины ячейки.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
