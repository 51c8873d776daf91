package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// Column widths in mm; they add up to the printable A4 width.
var pdfWidths = []float64{12, 42, 24, 20, 20, 50, 22}

func renderPDF(w io.Writer, loc weather.Location, records []weather.Record) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Weather data for "+loc.Name, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Weather data for "+loc.Name), "", 1, "L", false, 0, "")

	s := weather.Summarize(records)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Records: %d", s.Count), "", 1, "L", false, 0, "")
	if s.Count > 0 {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Temperature: min %.1f °C, max %.1f °C, avg %.1f °C",
			s.MinTemperature, s.MaxTemperature, s.AvgTemperature)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Prevailing condition: %s", s.Condition), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range columns {
		pdf.CellFormat(pdfWidths[i], 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, r := range records {
		cells := row(r)
		cells[1] = r.DateTime.UTC().Format(time.DateTime)
		for i, c := range cells {
			align := "R"
			if i == 1 || i == 5 {
				align = "L"
			}
			pdf.CellFormat(pdfWidths[i], 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
