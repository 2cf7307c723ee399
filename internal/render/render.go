// Package render turns a named template and a flat context into a document.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// Context is the flat presentation context handed to a template
type Context map[string]any

// Renderer produces a document from a named template
type Renderer interface {
	Render(name string, ctx Context) ([]byte, error)
}

// ErrUnknownTemplate is returned for a template name with no registered layout
var ErrUnknownTemplate = errors.New("unknown template")

// BillTemplate is the discharge bill layout
const BillTemplate = "bill"

type layout func(pdf *fpdf.Fpdf, tr func(string) string, ctx Context) error

// PDFRenderer renders registered layouts to PDF
type PDFRenderer struct {
	layouts map[string]layout
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{
		layouts: map[string]layout{
			BillTemplate: billLayout,
		},
	}
}

// Render lays out ctx with the named template and returns the PDF bytes
func (r *PDFRenderer) Render(name string, ctx Context) ([]byte, error) {
	lay, ok := r.layouts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Discharge Bill", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if err := lay(pdf, tr, ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var billDetails = []struct{ key, label string }{
	{"patient_name", "Patient Name"},
	{"assigned_doctor_name", "Doctor Name"},
	{"address", "Address"},
	{"mobile", "Mobile"},
	{"symptoms", "Symptoms"},
	{"admit_date", "Admit Date"},
	{"release_date", "Release Date"},
	{"days_stayed", "Days Spent"},
}

var billCharges = []struct{ key, label string }{
	{"room_charge", "Room Charge"},
	{"doctor_fee", "Doctor Fee"},
	{"medicine_cost", "Medicine Cost"},
	{"other_charge", "Other Charge"},
	{"total", "Total"},
}

func billLayout(pdf *fpdf.Fpdf, tr func(string) string, ctx Context) error {
	for _, group := range [][]struct{ key, label string }{billDetails, billCharges} {
		for _, f := range group {
			if _, ok := ctx[f.key]; !ok {
				return fmt.Errorf("bill: missing %q", f.key)
			}
		}
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Hospital Management", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Discharge Bill", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	for _, f := range billDetails {
		pdf.CellFormat(50, 8, f.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, tr(fmt.Sprint(ctx[f.key])), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for i, f := range billCharges {
		style := ""
		if i == len(billCharges)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(120, 8, f.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprint(ctx[f.key]), "1", 1, "R", false, 0, "")
	}

	return pdf.Error()
}
