package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hall ADP API",
        "description": "Residence hall room allocation: availability, bed requests and admin decisions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Token issue and session management"},
        {"name": "Rooms", "description": "Availability grids and room layouts"},
        {"name": "Allotments", "description": "Student bed requests"},
        {"name": "Admin", "description": "Request review, allocation and deallocation"},
        {"name": "Reports", "description": "Occupancy exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email or student number",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke a refresh token or every session",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/room-availability/{floor}/{block}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Availability of every room on one floor of a block",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "floor", "in": "path", "required": true, "type": "integer"},
                    {"name": "block", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Room number to availability; meta.cache_hit tells whether the grid came from cache", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid floor or block", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/room-layout/{block}/{roomNo}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Occupants and free beds of one room",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "block", "in": "path", "required": true, "type": "string"},
                    {"name": "roomNo", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/apply": {
            "post": {
                "tags": ["Allotments"],
                "summary": "Request a bed",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending request exists or bed occupied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/change": {
            "post": {
                "tags": ["Allotments"],
                "summary": "Request a room change",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/edit-request/{id}": {
            "post": {
                "tags": ["Allotments"],
                "summary": "Edit a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/cancel-request/{id}": {
            "post": {
                "tags": ["Allotments"],
                "summary": "Cancel a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CancelRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/student-status": {
            "get": {
                "tags": ["Allotments"],
                "summary": "Caller allocation and request history",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/requests": {
            "get": {
                "tags": ["Admin"],
                "summary": "List requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated: PENDING, APPROVED, REJECTED, CANCELLED"},
                    {"name": "block", "in": "query", "type": "string"},
                    {"name": "isRoomChange", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/requests/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get a request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin-action/{id}": {
            "post": {
                "tags": ["Admin"],
                "summary": "Approve or reject a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending, bed occupied or room full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/allocate-by-admin/{id}": {
            "post": {
                "tags": ["Admin"],
                "summary": "Approve a pending request onto another bed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdminAllocateRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/deallocate/{studentId}": {
            "post": {
                "tags": ["Admin"],
                "summary": "Release a student's bed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/DeallocateRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/bulk-deallocate": {
            "post": {
                "tags": ["Admin"],
                "summary": "Release the beds of many students",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkDeallocateRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/occupancy-report": {
            "get": {
                "tags": ["Reports"],
                "summary": "Occupancy export",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "block", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Attachment", "schema": {"type": "file"}}}
            }
        },
        "/admin/system-metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Cache, request and allocation transaction summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["identifier", "password"],
            "properties": {
                "identifier": {"type": "string", "description": "Email or student number"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {"refresh_token": {"type": "string"}}
        },
        "RoomRequest": {
            "type": "object",
            "required": ["block", "roomNo", "bedNo"],
            "properties": {
                "block": {"type": "string"},
                "roomNo": {"type": "integer"},
                "bedNo": {"type": "integer"},
                "notes": {"type": "string"}
            }
        },
        "CancelRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "AdminActionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "adminNotes": {"type": "string"}
            }
        },
        "AdminAllocateRequest": {
            "type": "object",
            "required": ["block", "roomNo", "bedNo"],
            "properties": {
                "block": {"type": "string"},
                "roomNo": {"type": "integer"},
                "bedNo": {"type": "integer"},
                "adminNotes": {"type": "string"}
            }
        },
        "DeallocateRequest": {
            "type": "object",
            "properties": {"adminNotes": {"type": "string"}}
        },
        "BulkDeallocateRequest": {
            "type": "object",
            "required": ["studentIds"],
            "properties": {
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "adminNotes": {"type": "string"}
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
