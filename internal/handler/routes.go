package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-erp-api/internal/middleware"
	"github.com/noah-isme/campus-erp-api/internal/models"
)

// RegisterFeeRoutes mounts the ledger and receipt routes on an authenticated
// group. Ledger mutations are audited by the service; only the sweep trigger
// and report exports get a request-level audit entry.
func RegisterFeeRoutes(secured *gin.RouterGroup, fees *FeeHandler, receipts *ReceiptHandler, audit middleware.AuditWriter) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	cashier := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	payer := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff, models.RoleStudent)
	selfOrCashier := middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), middleware.SelfStudent)

	group := secured.Group("/fees")
	group.POST("", admin, fees.Create)
	group.POST("/demand", admin, fees.GenerateDemand)
	group.POST("/late-fees/accrue", admin, middleware.Audit(audit, models.AuditActionLateFeeAccrue, "fees"), fees.AccrueLateFees)
	group.POST("/pay", payer, fees.Pay)
	group.GET("/students/:studentId/pending", selfOrCashier, fees.PendingFees)
	group.GET("/statistics", admin, fees.Statistics)
	group.GET("/report", admin, middleware.Audit(audit, models.AuditActionFeeReport, "fees"), fees.Report)
	group.GET("/receipts/:receiptNumber", receipts.ByNumber)
	group.GET("/transactions/:transactionId/receipt", receipts.ByTransaction)
	group.GET("/:id", cashier, fees.Get)
	group.POST("/:id/discount", admin, fees.ApplyDiscount)
	group.POST("/:id/cancel", admin, fees.CancelPayment)
}
