package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "KBM Corner API",
        "description": "Membership, attendance and progression backend for the KBM Corner student club",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Signup, login and tokens"},
        {"name": "Members", "description": "Member directory and account verification"},
        {"name": "Payments", "description": "Membership fees and expiry"},
        {"name": "Attendance", "description": "QR session-code check-in"},
        {"name": "Grades", "description": "Tutor grading and transcripts"},
        {"name": "Progression", "description": "Level-up reviews and certificates"},
        {"name": "Directory", "description": "Events and classes"},
        {"name": "Reports", "description": "CSV exports"},
        {"name": "Status", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create an account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Account pending verification"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/members": {
            "get": {
                "tags": ["Members"],
                "summary": "List members",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "integer"},
                    {"name": "expired", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/members/{id}": {
            "get": {
                "tags": ["Members"],
                "summary": "Get one member",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK, meta.stale=true when served from the fallback snapshot"},
                    "503": {"description": "Database down and no snapshot available"}
                }
            }
        },
        "/members/{id}/verify": {
            "post": {
                "tags": ["Members"],
                "summary": "Approve or reject a pending account",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Account not awaiting verification"}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record a fee payment for a member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created, expiry extended by four months"},
                    "409": {"description": "Concurrent update, retry"},
                    "503": {"description": "Database down, writes refused"}
                }
            },
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments/self": {
            "post": {
                "tags": ["Payments"],
                "summary": "Pay own membership fee",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/memberships/reset": {
            "post": {
                "tags": ["Payments"],
                "summary": "Expire every non-admin membership",
                "responses": {
                    "200": {"description": "OK, data.affected holds the row count"}
                }
            }
        },
        "/attendance/check-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Check in with a session code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInRequest"}}
                ],
                "responses": {
                    "201": {"description": "Checked in"},
                    "400": {"description": "No active event or class matches the code"},
                    "403": {"description": "Membership expired"},
                    "409": {"description": "Already checked in"}
                }
            }
        },
        "/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Record a grade",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created at the student's current level"},
                    "403": {"description": "Caller is not a tutor"}
                }
            }
        },
        "/grades/students/{id}": {
            "get": {
                "tags": ["Grades"],
                "summary": "Get a student's transcript",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "level", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK, meta.stale=true when served from the fallback snapshot"}
                }
            }
        },
        "/progression/verify": {
            "post": {
                "tags": ["Progression"],
                "summary": "Decide a level-up review",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LevelVerificationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Decision recorded; approval issues a certificate"},
                    "409": {"description": "Student level changed during review"}
                }
            }
        },
        "/progression/certificates/{id}": {
            "get": {
                "tags": ["Progression"],
                "summary": "Download a certificate PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF stream"},
                    "403": {"description": "Certificate belongs to another member"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Directory"],
                "summary": "List events",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Directory"],
                "summary": "Create an event with a check-in code",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Session code already in use"}
                }
            }
        },
        "/classes": {
            "get": {
                "tags": ["Directory"],
                "summary": "List classes",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Directory"],
                "summary": "Create a class with a check-in code",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/reports/members": {
            "post": {
                "tags": ["Reports"],
                "summary": "Export the member directory as CSV",
                "responses": {"200": {"description": "Export metadata with a signed download URL"}}
            }
        },
        "/reports/payments": {
            "post": {
                "tags": ["Reports"],
                "summary": "Export payments for a period as CSV",
                "parameters": [
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "Export metadata with a signed download URL"}}
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated export",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/status/metrics": {
            "get": {
                "tags": ["Status"],
                "summary": "Admin metrics snapshot",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["STUDENT", "COMMITTEE", "TUTOR"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "PaymentRequest": {
            "type": "object",
            "required": ["user_id", "amount", "payment_method"],
            "properties": {
                "user_id": {"type": "string"},
                "amount": {"type": "number"},
                "payment_method": {"type": "string", "enum": ["CASH", "BANK_TRANSFER", "EWALLET"]},
                "reference_number": {"type": "string"}
            }
        },
        "CheckInRequest": {
            "type": "object",
            "required": ["session_code"],
            "properties": {
                "session_code": {"type": "string"}
            }
        },
        "GradeRequest": {
            "type": "object",
            "required": ["student_id", "assessment_type", "grade"],
            "properties": {
                "student_id": {"type": "string"},
                "assessment_type": {"type": "string"},
                "grade": {"type": "number"},
                "comments": {"type": "string"}
            }
        },
        "LevelVerificationRequest": {
            "type": "object",
            "required": ["student_id"],
            "properties": {
                "student_id": {"type": "string"},
                "approved": {"type": "boolean"},
                "tutor_notes": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
