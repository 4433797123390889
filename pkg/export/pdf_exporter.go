package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfUsableWidth = 277.0 // A4 landscape minus 10mm margins

// PDFExporter renders datasets into a landscape tabular PDF.
type PDFExporter struct {
	title string
}

// NewPDFExporter constructs a PDF exporter printing title above the table.
func NewPDFExporter(title string) *PDFExporter {
	return &PDFExporter{title: title}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a PDF document with the title and table body. Column widths
// follow the longest value of each column.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if e.title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 10, tr(e.title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := pdfColumnWidths(data.ColumnLengths())

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(0x4F, 0x81, 0xBD)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 7, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range data.Rows {
		for i, value := range row {
			pdf.CellFormat(widths[i], 6, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfColumnWidths(lengths []int) []float64 {
	total := 0
	for _, n := range lengths {
		total += n + 2
	}
	widths := make([]float64, len(lengths))
	for i, n := range lengths {
		widths[i] = pdfUsableWidth * float64(n+2) / float64(total)
	}
	return widths
}
