package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/service"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/response"
)

type receiptService interface {
	ByNumber(ctx context.Context, receiptNumber string, actor service.Actor) (*dto.ReceiptResponse, error)
	ByTransaction(ctx context.Context, transactionID string, actor service.Actor) (*dto.ReceiptResponse, error)
	Document(ctx context.Context, transactionID string, actor service.Actor) (*dto.Document, error)
	Download(ctx context.Context, token string) (*dto.Document, error)
}

// ReceiptHandler serves payment receipts.
type ReceiptHandler struct {
	receipts receiptService
}

// NewReceiptHandler constructs a ReceiptHandler.
func NewReceiptHandler(receipts receiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// ByNumber godoc
// @Summary Receipt by receipt number
// @Description Returns the receipt PDF of the transaction the receipt number belongs to. format=json returns the receipt data instead.
// @Tags Receipts
// @Produce application/pdf
// @Produce json
// @Security BearerAuth
// @Param receiptNumber path string true "Receipt number"
// @Param format query string false "pdf or json"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /fees/receipts/{receiptNumber} [get]
func (h *ReceiptHandler) ByNumber(c *gin.Context) {
	actor := actorFromContext(c)
	receipt, err := h.receipts.ByNumber(c.Request.Context(), c.Param("receiptNumber"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, receipt, actor)
}

// ByTransaction godoc
// @Summary Consolidated receipt of a transaction
// @Tags Receipts
// @Produce application/pdf
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param format query string false "pdf or json"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /fees/transactions/{transactionId}/receipt [get]
func (h *ReceiptHandler) ByTransaction(c *gin.Context) {
	actor := actorFromContext(c)
	receipt, err := h.receipts.ByTransaction(c.Request.Context(), c.Param("transactionId"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, receipt, actor)
}

// Download godoc
// @Summary Download a receipt with a signed link
// @Tags Receipts
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /fees/receipts/download [get]
func (h *ReceiptHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	doc, err := h.receipts.Download(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}

func (h *ReceiptHandler) respond(c *gin.Context, receipt *dto.ReceiptResponse, actor service.Actor) {
	if c.Query("format") == "json" {
		response.JSON(c, http.StatusOK, receipt)
		return
	}
	doc, err := h.receipts.Document(c.Request.Context(), receipt.TransactionID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
}
