package report

import (
	"bytes"
	"fmt"
	"strings"

	"facility-inspect/internal/checklist"
	"facility-inspect/internal/model"

	"github.com/go-pdf/fpdf"
)

const (
	pdfLineHeight = 6.0
	pdfFont       = "Arial"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Item", 60},
	{"Rank", 20},
	{"Comments", 90},
}

// RenderPDF lays the record out as an A4 document with one table per category.
func RenderPDF(rec *model.Inspection, aiSummary string) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("render pdf: nil inspection")
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, "Facilities Inspection Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(pdfFont, "", 12)
	for _, line := range []string{
		"Building: " + rec.Building,
		"Inspection Type: " + rec.InspectionType,
		"Date: " + formatDate(rec.InspectionDate),
		"Inspector: " + rec.Inspector,
	} {
		pdf.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 10, "Ratings & Notes", "", 1, "L", false, 0, "")

	for _, group := range groupByCategory(rec.Items) {
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(0, 8, tr(group.category), "", 1, "L", false, 0, "")

		pdf.SetFont(pdfFont, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfLineHeight+1, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont(pdfFont, "", 10)
		for _, it := range group.items {
			tableRow(pdf, tr, it.Item, it.Rating, it.Notes)
		}
		pdf.Ln(4)
	}

	if strings.TrimSpace(aiSummary) != "" {
		pdf.SetFont(pdfFont, "B", 14)
		pdf.CellFormat(0, 10, "AI Summary", "", 1, "L", false, 0, "")
		pdf.SetFont(pdfFont, "", 10)
		pdf.MultiCell(0, pdfLineHeight, tr(plainText(aiSummary)), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// tableRow draws one bordered row whose height fits the tallest wrapped cell.
func tableRow(pdf *fpdf.Fpdf, tr func(string) string, cells ...string) {
	wrapped := make([][][]byte, len(cells))
	lines := 1
	for i, c := range cells {
		wrapped[i] = pdf.SplitLines([]byte(tr(c)), pdfColumns[i].width-2)
		if len(wrapped[i]) > lines {
			lines = len(wrapped[i])
		}
	}
	h := float64(lines) * pdfLineHeight

	_, pageH := pdf.GetPageSize()
	left, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-bottom {
		pdf.AddPage()
	}

	x, y := pdf.GetXY()
	for i, col := range pdfColumns {
		pdf.Rect(x, y, col.width, h, "D")
		for j, ln := range wrapped[i] {
			pdf.SetXY(x+1, y+float64(j)*pdfLineHeight)
			pdf.CellFormat(col.width-2, pdfLineHeight, string(ln), "", 0, "L", false, 0, "")
		}
		x += col.width
	}
	pdf.SetXY(left, y+h)
}

type categoryGroup struct {
	category string
	items    []model.InspectionItem
}

// groupByCategory keeps categories in first-seen order.
func groupByCategory(items []model.InspectionItem) []categoryGroup {
	var groups []categoryGroup
	index := map[string]int{}
	for _, it := range items {
		cat := it.Category
		if cat == "" {
			cat = checklist.DefaultCategory
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, categoryGroup{category: cat})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

// plainText drops the markdown emphasis markers the model tends to emit.
func plainText(md string) string {
	r := strings.NewReplacer("**", "", "__", "", "### ", "", "## ", "", "# ", "")
	return r.Replace(md)
}
