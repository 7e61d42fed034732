package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterWritesSummary(t *testing.T) {
	exporter := NewCSVExporter(true)
	out, err := exporter.Render(Dataset{
		Headers: []string{"student_id", "total"},
		Rows:    []map[string]string{{"student_id": "CS2025001", "total": "50000"}},
		Summary: [][2]string{{"Total Records", "1"}},
	})
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, string(utf8BOM)))
	assert.Contains(t, text, "student_id,total\nCS2025001,50000\n")
	assert.Contains(t, text, "Total Records,1\n")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter(false).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	rows := make([]map[string]string, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, map[string]string{"fee_type": "tuition", "status": "paid"})
	}
	out, err := NewPDFExporter().Render(Dataset{Title: "Fee Report", Headers: []string{"fee_type", "status"}, Rows: rows})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestReceiptRendererRender(t *testing.T) {
	receipt := Receipt{
		Institution: "Government Engineering College",
		Student:     ReceiptStudent{Name: "Asha Patel", RollNo: "CS2025001", Course: "B.Tech CSE"},
		Lines: []ReceiptLine{
			{ReceiptNumber: "RCP20261000001", Description: "Tuition fee for 2025-26 - Semester 1", FeeType: "tuition", Semester: 1, AcademicYear: "2025-26", Amount: 30000},
			{ReceiptNumber: "RCP20261000002", FeeType: "hostel", Semester: 1, AcademicYear: "2025-26", Amount: 10000},
		},
		Meta: ReceiptMeta{TransactionID: "TXN1A2B3C4D", PaymentMethod: "bank_transfer", PaymentDate: time.Date(2026, 10, 3, 10, 0, 0, 0, time.UTC)},
	}

	out, err := NewReceiptRenderer().Render(receipt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
	assert.Equal(t, int64(40000), receipt.Total())
}

func TestReceiptRendererRequiresLines(t *testing.T) {
	_, err := NewReceiptRenderer().Render(Receipt{})
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "999", FormatAmount(999))
	assert.Equal(t, "50,000", FormatAmount(50000))
	assert.Equal(t, "1,234,567", FormatAmount(1234567))
	assert.Equal(t, "-2,500", FormatAmount(-2500))
}
