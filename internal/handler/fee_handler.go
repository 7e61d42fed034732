package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-erp-api/internal/dto"
	"github.com/noah-isme/campus-erp-api/internal/models"
	"github.com/noah-isme/campus-erp-api/internal/service"
	appErrors "github.com/noah-isme/campus-erp-api/pkg/errors"
	"github.com/noah-isme/campus-erp-api/pkg/response"
)

type feeLedger interface {
	GenerateDemand(ctx context.Context, req dto.GenerateDemandRequest, actor service.Actor) (*dto.GenerateDemandResult, error)
	AccrueLateFees(ctx context.Context) (*dto.AccrualResult, error)
	Pay(ctx context.Context, req dto.PayFeeRequest, actor service.Actor) (*dto.PaymentAllocationResult, error)
	PendingFeesForStudent(ctx context.Context, studentID string, actor service.Actor) (*dto.PendingFeesResponse, error)
	Statistics(ctx context.Context) (*dto.FeeStatistics, error)
	Create(ctx context.Context, req dto.CreateFeeRequest, actor service.Actor) (*models.Fee, error)
	Get(ctx context.Context, feeID string) (*models.Fee, error)
	ApplyDiscount(ctx context.Context, feeID string, req dto.DiscountRequest, actor service.Actor) (*models.Fee, error)
	CancelPayment(ctx context.Context, feeID string, req dto.CancelRequest, actor service.Actor) (*models.Fee, error)
}

type feeReporter interface {
	Report(ctx context.Context, req dto.FeeReportFilter) (*dto.FeeReport, error)
	Export(ctx context.Context, req dto.FeeReportFilter) (*dto.Document, error)
}

// FeeHandler exposes fee ledger endpoints.
type FeeHandler struct {
	ledger  feeLedger
	reports feeReporter
}

// NewFeeHandler constructs a FeeHandler.
func NewFeeHandler(ledger feeLedger, reports feeReporter) *FeeHandler {
	return &FeeHandler{ledger: ledger, reports: reports}
}

// GenerateDemand godoc
// @Summary Generate semester fee demand
// @Description Creates pending fees for every active student of the given courses and semester. Existing records are skipped.
// @Tags Fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateDemandRequest true "Demand payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/demand [post]
func (h *FeeHandler) GenerateDemand(c *gin.Context) {
	var req dto.GenerateDemandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid demand payload"))
		return
	}
	result, err := h.ledger.GenerateDemand(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// AccrueLateFees godoc
// @Summary Run the late fee sweep
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /fees/late-fees/accrue [post]
func (h *FeeHandler) AccrueLateFees(c *gin.Context) {
	result, err := h.ledger.AccrueLateFees(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Pay godoc
// @Summary Record a payment
// @Description Allocates the amount across the student's outstanding fees, earliest due date first.
// @Tags Fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PayFeeRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/pay [post]
func (h *FeeHandler) Pay(c *gin.Context) {
	var req dto.PayFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	result, err := h.ledger.Pay(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// PendingFees godoc
// @Summary List a student's outstanding fees
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/students/{studentId}/pending [get]
func (h *FeeHandler) PendingFees(c *gin.Context) {
	result, err := h.ledger.PendingFeesForStudent(c.Request.Context(), c.Param("studentId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Statistics godoc
// @Summary Fee collection statistics
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /fees/statistics [get]
func (h *FeeHandler) Statistics(c *gin.Context) {
	stats, err := h.ledger.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Report godoc
// @Summary Fee collection report
// @Description Returns JSON by default; format=csv or format=pdf downloads a file.
// @Tags Fees
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param date_from query string false "Created on or after (YYYY-MM-DD)"
// @Param date_to query string false "Created on or before (YYYY-MM-DD)"
// @Param course_id query string false "Course ID"
// @Param status query string false "Fee status"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/report [get]
func (h *FeeHandler) Report(c *gin.Context) {
	var filter dto.FeeReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report filter"))
		return
	}
	filter.Format = strings.ToLower(filter.Format)
	if filter.Format == "csv" || filter.Format == "pdf" {
		doc, err := h.reports.Export(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, doc.Filename, doc.ContentType, doc.Data)
		return
	}
	report, err := h.reports.Report(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, map[string]interface{}{"row_count": len(report.Rows)})
}

// Create godoc
// @Summary Create a fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req dto.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}
	fee, err := h.ledger.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// Get godoc
// @Summary Get a fee record
// @Tags Fees
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee)
}

// ApplyDiscount godoc
// @Summary Apply a discount to an outstanding fee
// @Tags Fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Param payload body dto.DiscountRequest true "Discount payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/{id}/discount [post]
func (h *FeeHandler) ApplyDiscount(c *gin.Context) {
	var req dto.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	fee, err := h.ledger.ApplyDiscount(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee)
}

// CancelPayment godoc
// @Summary Cancel a paid fee
// @Tags Fees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Fee ID"
// @Param payload body dto.CancelRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/{id}/cancel [post]
func (h *FeeHandler) CancelPayment(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}
	fee, err := h.ledger.CancelPayment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee)
}
