package export

import (
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/jung-kurt/gofpdf"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// ErrNotSubmitted is returned for receipts of properties with no submitted documents.
var ErrNotSubmitted = errors.New("verification documents have not been submitted")

const receiptDateFormat = "02 Jan 2006 15:04 MST"

// WriteReceipt renders the landlord's proof of an ownership verification
// submission as a PDF.
func WriteReceipt(w io.Writer, p *properties.Property) error {
	v := p.Verification
	if v == nil || len(v.Documents) == 0 || v.SubmittedAt == nil {
		return ErrNotSubmitted
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("Ownership verification receipt", true)
	pdf.SetAuthor("RentSafe", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Ownership Verification Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Submitted "+v.SubmittedAt.UTC().Format(receiptDateFormat), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetTextColor(0, 0, 0)
	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}
	field("Property", p.Title)
	field("Reference", p.ID.String())
	field("Address", fmt.Sprintf("%s, %s, %s", p.Address, p.City, p.State))
	field("Landlord", p.LandlordName)
	field("Status", statusLabel(properties.DeriveDisplayStatus(p)))
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(80, 8, "Document", "1", 0, "C", true, 0, "")
	pdf.CellFormat(100, 8, "File", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for i, key := range documents.Keys() {
		if i%2 == 1 {
			pdf.SetFillColor(242, 242, 242)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		file := "missing"
		if ref, ok := v.Documents[key]; ok {
			file = path.Base(ref)
		}
		pdf.CellFormat(80, 7, key.Label(), "1", 0, "L", true, 0, "")
		pdf.CellFormat(100, 7, file, "1", 1, "L", true, 0, "")
	}

	if v.Status == properties.VerificationRejected && v.RejectionReason != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(180, 30, 30)
		pdf.CellFormat(0, 7, "Rejection reason", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, tr(v.RejectionReason), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return pdf.Output(w)
}
