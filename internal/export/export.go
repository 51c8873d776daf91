// Package export renders a location's weather history as a downloadable file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// Format is an export file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	PDF      Format = "pdf"
	Markdown Format = "markdown"
	XML      Format = "xml"
)

// Formats lists every supported format in the order they are offered.
var Formats = []Format{JSON, CSV, PDF, Markdown, XML}

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case CSV:
		return "text/csv; charset=utf-8"
	case PDF:
		return "application/pdf"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case XML:
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}

// FileName is the name the download is saved under.
func (f Format) FileName() string {
	return "weather_data." + string(f)
}

// Render writes records of loc to w. Records are written in the order given;
// callers pass them newest first.
func Render(w io.Writer, f Format, loc weather.Location, records []weather.Record) error {
	switch f {
	case JSON:
		return renderJSON(w, loc, records)
	case CSV:
		return renderCSV(w, records)
	case Markdown:
		return renderMarkdown(w, loc, records)
	case XML:
		return renderXML(w, loc, records)
	case PDF:
		return renderPDF(w, loc, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

var columns = []string{"id", "date_time", "temperature", "humidity", "pressure", "description", "wind_speed"}

func row(r weather.Record) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.DateTime.UTC().Format(time.RFC3339),
		num(r.Temperature),
		num(r.Humidity),
		num(r.Pressure),
		r.Description,
		num(r.WindSpeed),
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func renderJSON(w io.Writer, loc weather.Location, records []weather.Record) error {
	if records == nil {
		records = []weather.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Location weather.Location `json:"location"`
		Summary  weather.Summary  `json:"summary"`
		Records  []weather.Record `json:"records"`
	}{loc, weather.Summarize(records), records})
}

func renderCSV(w io.Writer, records []weather.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderMarkdown(w io.Writer, loc weather.Location, records []weather.Record) error {
	var b strings.Builder
	s := weather.Summarize(records)

	fmt.Fprintf(&b, "# Weather data for %s\n\n", loc.Name)
	if loc.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n\n", loc.Country)
	}
	fmt.Fprintf(&b, "- Records: %d\n", s.Count)
	if s.Count > 0 {
		fmt.Fprintf(&b, "- Period: %s to %s\n", s.From.UTC().Format(time.RFC3339), s.To.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "- Temperature: min %.1f °C, max %.1f °C, avg %.1f °C\n", s.MinTemperature, s.MaxTemperature, s.AvgTemperature)
		fmt.Fprintf(&b, "- Prevailing condition: %s\n", s.Condition)
	}
	b.WriteString("\n| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, r := range records {
		cells := row(r)
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type xmlRecord struct {
	ID          int64   `xml:"id,attr"`
	DateTime    string  `xml:"date_time"`
	Temperature float64 `xml:"temperature"`
	Humidity    float64 `xml:"humidity"`
	Pressure    float64 `xml:"pressure"`
	Description string  `xml:"description"`
	WindSpeed   float64 `xml:"wind_speed"`
}

type xmlDocument struct {
	XMLName  xml.Name    `xml:"weather_data"`
	Location string      `xml:"location,attr"`
	Country  string      `xml:"country,attr,omitempty"`
	Records  []xmlRecord `xml:"record"`
}

func renderXML(w io.Writer, loc weather.Location, records []weather.Record) error {
	doc := xmlDocument{Location: loc.Name, Country: loc.Country}
	for _, r := range records {
		doc.Records = append(doc.Records, xmlRecord{
			ID:          r.ID,
			DateTime:    r.DateTime.UTC().Format(time.RFC3339),
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Pressure:    r.Pressure,
			Description: r.Description,
			WindSpeed:   r.WindSpeed,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
