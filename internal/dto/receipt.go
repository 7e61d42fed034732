package dto

import (
	"time"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

// ReceiptLineView is one paid fee on a receipt.
type ReceiptLineView struct {
	FeeID         string         `json:"feeId"`
	ReceiptNumber string         `json:"receiptNumber"`
	FeeType       models.FeeType `json:"feeType"`
	Description   string         `json:"description"`
	Semester      int            `json:"semester"`
	AcademicYear  string         `json:"academicYear"`
	Amount        int64          `json:"amount"`
}

// ReceiptResponse describes every fee settled by one transaction.
type ReceiptResponse struct {
	TransactionID   string               `json:"transactionId"`
	StudentID       string               `json:"studentId"`
	StudentName     string               `json:"studentName"`
	CourseName      string               `json:"courseName"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	PaymentDate     time.Time            `json:"paymentDate"`
	ReferenceNumber *string              `json:"referenceNumber,omitempty"`
	Lines           []ReceiptLineView    `json:"lines"`
	Total           int64                `json:"total"`
	DownloadURL     string               `json:"downloadUrl,omitempty"`
}
