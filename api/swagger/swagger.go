package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classboard Enrollment API",
        "description": "Class enrollment, waitlist and section planning service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Waitlist", "description": "Ordered waitlists and enrollment offers"},
        {"name": "Enrollments", "description": "Enrollment requests, reviews and drops"},
        {"name": "Planning", "description": "Read-only section capacity planning"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/classes/{classId}/waitlist": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "List a class waitlist in position order",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Waitlist"],
                "summary": "Add a student to a class waitlist",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinWaitlistRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate entry or waitlist full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/waitlist/process": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Offer open seats to waitlisted students",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Promotion report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/waitlist/{studentId}": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Get a student's waitlist standing",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not on waitlist", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Waitlist"],
                "summary": "Withdraw a student from the waitlist",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/classes/{classId}/waitlist/{studentId}/position": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Get a student's current waitlist position",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/waitlist/{studentId}/response": {
            "post": {
                "tags": ["Waitlist"],
                "summary": "Accept or decline an open enrollment offer",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OfferResponseRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "No open offer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Class filled before acceptance", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Request enrollment into a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestEnrollmentInput"}}
                ],
                "responses": {
                    "200": {"description": "Enrollment result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/bulk": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a batch of students into one class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkEnrollRequest"}}
                ],
                "responses": {
                    "200": {"description": "Bulk report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/drop": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Drop a student from a class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DropRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/enrollments/requests/{requestId}/approve": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Approve a pending enrollment request",
                "parameters": [
                    {"name": "requestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Enrollment result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/requests/{requestId}/deny": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Deny a pending enrollment request",
                "parameters": [
                    {"name": "requestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/planning/departments/{departmentId}/analysis": {
            "get": {
                "tags": ["Planning"],
                "summary": "Score course demand across a department",
                "parameters": [
                    {"name": "departmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planning/departments/{departmentId}/plans": {
            "get": {
                "tags": ["Planning"],
                "summary": "Generate advisory section plans",
                "parameters": [
                    {"name": "departmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/planning/departments/{departmentId}/plans/export": {
            "get": {
                "tags": ["Planning"],
                "summary": "Export section plans as CSV or PDF",
                "parameters": [
                    {"name": "departmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "JoinWaitlistRequest": {
            "type": "object",
            "required": ["studentId"],
            "properties": {
                "studentId": {"type": "string"},
                "priority": {"type": "integer"}
            }
        },
        "OfferResponseRequest": {
            "type": "object",
            "required": ["response"],
            "properties": {
                "response": {"type": "string", "enum": ["accept", "decline"]}
            }
        },
        "RequestEnrollmentInput": {
            "type": "object",
            "required": ["student_id", "class_id"],
            "properties": {
                "student_id": {"type": "string"},
                "class_id": {"type": "string"},
                "justification": {"type": "string"},
                "performed_by": {"type": "string"}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "required": ["reviewerId"],
            "properties": {
                "reviewerId": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "DropRequest": {
            "type": "object",
            "required": ["studentId", "classId"],
            "properties": {
                "studentId": {"type": "string"},
                "classId": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "BulkEnrollRequest": {
            "type": "object",
            "required": ["studentIds", "classId"],
            "properties": {
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "classId": {"type": "string"},
                "performedBy": {"type": "string"}
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
