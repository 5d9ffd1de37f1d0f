// Package offer renders offer letters from the HR review decision.
package offer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/onboardhr/onboarding/internal/onboarding/stepdata"
)

var ErrMissingTerms = errors.New("offer terms incomplete: fixedCTC and joiningDate are required")

// Terms are the compensation details HR records on the hr-review step.
type Terms struct {
	FixedCTC    string
	JoiningDate string
	HRNotes     string
	ReviewedBy  string
}

// ParseTerms reads terms from stored step data, which may be a JSON object
// or a string holding JSON or a legacy {k=v} blob. The CTC may arrive as a
// string or number. Data that cannot be read as an object is ErrMissingTerms.
func ParseTerms(data []byte) (Terms, error) {
	value, err := stepdata.Decode(data)
	if err != nil {
		return Terms{}, fmt.Errorf("%w: unreadable hr-review data: %v", ErrMissingTerms, err)
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return Terms{}, ErrMissingTerms
	}

	terms := Terms{
		FixedCTC:    text(raw["fixedCTC"]),
		JoiningDate: text(raw["joiningDate"]),
		HRNotes:     text(raw["hrNotes"]),
		ReviewedBy:  text(raw["reviewedBy"]),
	}
	if terms.FixedCTC == "" || terms.JoiningDate == "" {
		return Terms{}, ErrMissingTerms
	}
	return terms, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Letter is everything printed on an offer letter.
type Letter struct {
	Company       string
	CandidateName string
	Position      string
	Department    string
	Terms         Terms
	IssuedAt      time.Time
}

// Render produces the letter as a single-page A4 PDF.
func Render(l Letter) ([]byte, error) {
	if l.Terms.FixedCTC == "" || l.Terms.JoiningDate == "" {
		return nil, ErrMissingTerms
	}
	if l.IssuedAt.IsZero() {
		l.IssuedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(fmt.Sprintf("Offer Letter - %s", l.CandidateName), true)
	pdf.SetAuthor(l.Company, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(68, 114, 196)
	pdf.CellFormat(0, 10, l.Company, "", 1, "L", false, 0, "")
	pdf.SetTextColor(128, 128, 128)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, l.IssuedAt.Format("January 2, 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Offer of Employment", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("Dear %s,", l.CandidateName), "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"We are pleased to offer you the position of %s in the %s department at %s. "+
			"The terms of this offer are set out below.",
		orDash(l.Position), orDash(l.Department), l.Company), "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Position", orDash(l.Position)},
		{"Department", orDash(l.Department)},
		{"Fixed CTC (annual)", l.Terms.FixedCTC},
		{"Joining date", l.Terms.JoiningDate},
	}
	for i, row := range rows {
		fill := i%2 == 0
		pdf.SetFillColor(242, 242, 242)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 8, row[0], "1", 0, "L", fill, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", fill, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	if l.Terms.HRNotes != "" {
		pdf.MultiCell(0, 6, l.Terms.HRNotes, "", "L", false)
		pdf.Ln(2)
	}
	pdf.MultiCell(0, 6, "Please review and accept this offer in the onboarding portal.", "", "L", false)
	pdf.Ln(10)

	pdf.CellFormat(0, 6, "Sincerely,", "", 1, "L", false, 0, "")
	signer := l.Terms.ReviewedBy
	if signer == "" {
		signer = "Human Resources"
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, signer, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, l.Company, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render offer letter: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
