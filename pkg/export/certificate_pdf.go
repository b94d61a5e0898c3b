package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData holds the fields printed on a level-completion certificate.
type CertificateData struct {
	MemberName  string
	Level       int
	Title       string
	Description string
	IssuedAt    time.Time
}

// CertificatePDF renders level-completion certificates.
type CertificatePDF struct {
	clubName string
}

// NewCertificatePDF builds a certificate renderer for the given club name.
func NewCertificatePDF(clubName string) *CertificatePDF {
	if clubName == "" {
		clubName = "KBM Corner"
	}
	return &CertificatePDF{clubName: clubName}
}

// Render produces a single-page landscape certificate.
func (e *CertificatePDF) Render(data CertificateData) ([]byte, error) {
	if data.MemberName == "" {
		return nil, fmt.Errorf("certificate requires a member name")
	}
	if data.Level < 1 || data.Level > 5 {
		return nil, fmt.Errorf("certificate level out of range: %d", data.Level)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 24)
	pdf.CellFormat(0, 14, e.clubName, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, "Certificate of Level Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, data.MemberName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	title := data.Title
	if title == "" {
		title = fmt.Sprintf("has completed Level %d", data.Level)
	}
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")

	if data.Description != "" {
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, data.Description, "", "C", false)
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", data.IssuedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
