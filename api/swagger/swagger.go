package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus ERP Fee API",
        "description": "Fee ledger for the campus ERP: demand generation, payments, late fees, receipts and reports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Access tokens"},
        {"name": "Fees", "description": "Fee ledger"},
        {"name": "Receipts", "description": "Payment receipts"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees": {
            "post": {
                "tags": ["Fees"],
                "summary": "Create a fee record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateFeeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/demand": {
            "post": {
                "tags": ["Fees"],
                "summary": "Generate semester fee demand",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateDemandRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active students", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/late-fees/accrue": {
            "post": {
                "tags": ["Fees"],
                "summary": "Run the late fee sweep",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/pay": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PayFeeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Amount exceeds pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No pending fees", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/students/{studentId}/pending": {
            "get": {
                "tags": ["Fees"],
                "summary": "List a student's outstanding fees",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/statistics": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee collection statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/report": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee collection report",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"},
                    {"name": "course_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "paid", "overdue", "cancelled"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/fees/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Get a fee record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/discount": {
            "post": {
                "tags": ["Fees"],
                "summary": "Apply a discount to an outstanding fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DiscountRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}/cancel": {
            "post": {
                "tags": ["Fees"],
                "summary": "Cancel a paid fee",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/receipts/{receiptNumber}": {
            "get": {
                "tags": ["Receipts"],
                "summary": "Receipt by receipt number",
                "produces": ["application/pdf", "application/json"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "receiptNumber", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "json"]}
                ],
                "responses": {
                    "200": {"description": "Receipt"}
                }
            }
        },
        "/fees/transactions/{transactionId}/receipt": {
            "get": {
                "tags": ["Receipts"],
                "summary": "Consolidated receipt of a transaction",
                "produces": ["application/pdf", "application/json"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "transactionId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "json"]}
                ],
                "responses": {
                    "200": {"description": "Receipt"}
                }
            }
        },
        "/fees/receipts/download": {
            "get": {
                "tags": ["Receipts"],
                "summary": "Download a receipt with a signed link",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Receipt PDF"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "GenerateDemandRequest": {
            "type": "object",
            "required": ["courseIds", "semester", "academicYear"],
            "properties": {
                "courseIds": {"type": "array", "items": {"type": "string"}},
                "semester": {"type": "integer"},
                "academicYear": {"type": "string", "example": "2026-27"},
                "feeTypes": {"type": "array", "items": {"type": "string"}},
                "dueInDays": {"type": "integer"}
            }
        },
        "PayFeeRequest": {
            "type": "object",
            "required": ["studentId", "amount", "paymentMethod"],
            "properties": {
                "studentId": {"type": "string"},
                "amount": {"type": "integer"},
                "paymentMethod": {"type": "string", "enum": ["cash", "online", "bank_transfer", "cheque", "demand_draft"]},
                "transactionId": {"type": "string"},
                "referenceNumber": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "CreateFeeRequest": {
            "type": "object",
            "required": ["studentId", "feeType", "amount", "semester", "academicYear", "dueDate"],
            "properties": {
                "studentId": {"type": "string"},
                "feeType": {"type": "string", "enum": ["tuition", "hostel", "library", "laboratory", "exam", "miscellaneous"]},
                "amount": {"type": "integer"},
                "semester": {"type": "integer"},
                "academicYear": {"type": "string"},
                "dueDate": {"type": "string", "format": "date-time"},
                "description": {"type": "string"}
            }
        },
        "DiscountRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "discount": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "CancelRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
