package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const receiptFooter = "This is a computer-generated receipt. No signature required."

// ReceiptStudent carries the payer details printed on a receipt.
type ReceiptStudent struct {
	Name   string
	RollNo string
	Course string
	Email  string
}

// ReceiptLine is one paid fee record.
type ReceiptLine struct {
	ReceiptNumber string
	Description   string
	FeeType       string
	Semester      int
	AcademicYear  string
	Amount        int64
}

// ReceiptMeta describes the payment the receipt acknowledges.
type ReceiptMeta struct {
	TransactionID   string
	ReferenceNumber string
	PaymentMethod   string
	PaymentDate     time.Time
}

// Receipt is the full input of a rendered receipt.
type Receipt struct {
	Institution string
	Student     ReceiptStudent
	Lines       []ReceiptLine
	Meta        ReceiptMeta
}

// Total sums the line amounts.
func (r Receipt) Total() int64 {
	var total int64
	for _, line := range r.Lines {
		total += line.Amount
	}
	return total
}

// ReceiptRenderer draws fee receipts with gofpdf.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render produces the receipt PDF bytes.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if len(receipt.Lines) == 0 {
		return nil, fmt.Errorf("receipt requires at least one line")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, receipt.Institution, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "FEE RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	label := func(name, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, name, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "1", 1, "", false, 0, "")
	}
	label("Student Name", receipt.Student.Name)
	label("Roll Number", receipt.Student.RollNo)
	if receipt.Student.Course != "" {
		label("Course", receipt.Student.Course)
	}
	label("Transaction ID", receipt.Meta.TransactionID)
	if receipt.Meta.ReferenceNumber != "" {
		label("Reference", receipt.Meta.ReferenceNumber)
	}
	label("Payment Method", strings.ReplaceAll(receipt.Meta.PaymentMethod, "_", " "))
	label("Payment Date", receipt.Meta.PaymentDate.Format("02 Jan 2006 15:04"))
	pdf.Ln(6)

	widths := []float64{40, 70, 40, 30}
	headers := []string{"Receipt No", "Description", "Semester / Year", "Amount"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range receipt.Lines {
		description := line.Description
		if description == "" {
			description = line.FeeType
		}
		pdf.CellFormat(widths[0], 7, line.ReceiptNumber, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, truncate(description, widths[1]*1.3), "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d / %s", line.Semester, line.AcademicYear), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 7, FormatAmount(line.Amount), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 8, "Total Paid", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, FormatAmount(receipt.Total()), "1", 1, "R", false, 0, "")

	pdf.Ln(12)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, receiptFooter, "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatAmount renders an integer amount with thousands separators.
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return sign + b.String()
}
