// Package pdf renders report documents with the fpdf core fonts.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/mozillazg/go-unidecode"

	"ms-visitors/internal/models"
)

const (
	rowHeight  = 7.0
	pageMargin = 15.0
)

type column struct {
	title string
	width float64
	align string
}

var summaryColumns = []column{
	{"Visitor type", 60, "L"},
	{"Visitors", 35, "R"},
	{"Revenue", 45, "R"},
	{"Share", 40, "R"},
}

var detailColumns = []column{
	{"Date", 24, "L"},
	{"Name", 52, "L"},
	{"Type", 22, "L"},
	{"Nationality", 30, "L"},
	{"Arrival", 18, "C"},
	{"Group", 14, "R"},
	{"Price", 20, "R"},
}

// Renderer lays out a report as an A4 document: a summary table per visitor
// type followed by the detailed visitor listing.
type Renderer struct {
	Brand string
	// Compress deflates page streams. Tests turn it off to inspect text.
	Compress bool
}

func NewRenderer(brand string) *Renderer {
	return &Renderer{Brand: brand, Compress: true}
}

// Render returns the PDF bytes of r. Metadata dates come from the report so
// identical input yields identical content.
func (rd *Renderer) Render(r *models.Report) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(rd.Compress)
	doc.SetCatalogSort(true)
	doc.SetCreationDate(r.GeneratedAt)
	doc.SetModificationDate(r.GeneratedAt)
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(false, pageMargin)
	doc.AliasNbPages("")

	tr := latin1(doc)
	doc.SetTitle(tr(r.Title), false)
	doc.SetAuthor(tr(rd.Brand), false)
	doc.SetFooterFunc(func() {
		doc.SetY(-pageMargin)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 8, fmt.Sprintf("%s - page %d/{nb}", tr(rd.Brand), doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	rd.header(doc, tr, r)

	sectionTitle(doc, "Summary")
	tableHeader(doc, summaryColumns)
	for i, s := range r.Stats {
		ensureRoom(doc, summaryColumns)
		tableRow(doc, summaryColumns, i%2 == 1,
			tr(string(s.Type)),
			fmt.Sprintf("%d", s.TotalVisitors),
			s.TotalRevenue.StringFixed(2),
			s.Percentage.StringFixed(2)+" %",
		)
	}
	ensureRoom(doc, summaryColumns)
	doc.SetFont("Helvetica", "B", 10)
	tableRow(doc, summaryColumns, false, "Total",
		fmt.Sprintf("%d", r.TotalVisitors), r.TotalRevenue.StringFixed(2), "")

	doc.Ln(6)
	sectionTitle(doc, fmt.Sprintf("Visitors (%d)", len(r.Visitors)))
	tableHeader(doc, detailColumns)
	for i, v := range r.Visitors {
		if ensureRoom(doc, detailColumns) {
			doc.SetFont("Helvetica", "", 9)
		}
		group := ""
		if v.GroupSize > 0 {
			group = fmt.Sprintf("%d", v.GroupSize)
		}
		tableRow(doc, detailColumns, i%2 == 1,
			v.VisitDate.In(r.Period.Start.Location()).Format("02/01/2006"),
			truncate(tr(v.FullName), 32),
			tr(string(v.Type)),
			truncate(tr(v.Nationality), 18),
			tr(v.ArrivalTime),
			group,
			v.TicketPrice.StringFixed(2),
		)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

func (rd *Renderer) header(doc *fpdf.Fpdf, tr func(string) string, r *models.Report) {
	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(34, 85, 51)
	doc.CellFormat(0, 10, tr(rd.Brand), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "B", 14)
	doc.SetTextColor(0, 0, 0)
	doc.MultiCell(0, 7, tr(r.Title), "", "L", false)

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(80, 80, 80)
	doc.CellFormat(0, 6, fmt.Sprintf("Period: %s - %s",
		r.Period.Start.Format("02/01/2006 15:04"), r.Period.End.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, tr(fmt.Sprintf("Generated %s by %s",
		r.GeneratedAt.Format("02/01/2006 15:04"), r.GeneratedBy)), "", 1, "L", false, 0, "")
	doc.Ln(4)
}

func sectionTitle(doc *fpdf.Fpdf, title string) {
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func tableHeader(doc *fpdf.Fpdf, cols []column) {
	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(34, 85, 51)
	doc.SetTextColor(255, 255, 255)
	for _, c := range cols {
		doc.CellFormat(c.width, rowHeight, c.title, "1", 0, c.align, true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(0, 0, 0)
}

func tableRow(doc *fpdf.Fpdf, cols []column, shaded bool, values ...string) {
	doc.SetFillColor(240, 245, 240)
	for i, c := range cols {
		doc.CellFormat(c.width, rowHeight, values[i], "1", 0, c.align, shaded, 0, "")
	}
	doc.Ln(-1)
}

// ensureRoom starts a new page with a repeated table header when the next
// row would cross the bottom margin. It reports whether a page was added.
func ensureRoom(doc *fpdf.Fpdf, cols []column) bool {
	_, pageHeight := doc.GetPageSize()
	if doc.GetY()+rowHeight <= pageHeight-pageMargin-rowHeight {
		return false
	}
	doc.AddPage()
	tableHeader(doc, cols)
	return true
}

// latin1 converts UTF-8 text to the cp1252 encoding of the core fonts.
// Characters outside Latin-1 are transliterated first.
func latin1(doc *fpdf.Fpdf) func(string) string {
	encode := doc.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r > 0xFF {
				b.WriteString(unidecode.Unidecode(string(r)))
				continue
			}
			b.WriteRune(r)
		}
		return encode(b.String())
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
