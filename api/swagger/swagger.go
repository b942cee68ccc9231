package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CLO Import API",
        "description": "Course-outcome import, reconciliation and export service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Imports", "description": "File ingestion, batch status and audit trail"},
        {"name": "Reviews", "description": "Manual conflict resolution"},
        {"name": "Exports", "description": "Portable bundle generation and download"},
        {"name": "Outcomes", "description": "Outcome approval workflow"},
        {"name": "Stats", "description": "Per-tenant record statistics"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/api/v1/imports": {
            "post": {
                "tags": ["Imports"],
                "summary": "Import an assessment file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "strategy", "in": "formData", "type": "string", "required": true, "enum": ["use_mine", "use_theirs", "merge", "manual_review"]},
                    {"name": "dryRun", "in": "formData", "type": "boolean"},
                    {"name": "institution", "in": "query", "type": "string", "description": "Target tenant (site administrators only)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Imports"],
                "summary": "List recent import batches for the institution",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "description": "Maximum rows, defaults to 50"},
                    {"name": "institution", "in": "query", "type": "string", "description": "Target tenant (site administrators only)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/audit": {
            "get": {
                "tags": ["Imports"],
                "summary": "Audit trail of one entity across batches",
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "required": true},
                    {"name": "key", "in": "query", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer", "description": "Maximum rows, defaults to 50"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/outcomes/{id}/status": {
            "patch": {
                "tags": ["Outcomes"],
                "summary": "Transition an outcome's approval status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateOutcomeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Illegal transition", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/api/v1/imports/{batchId}": {
            "get": {
                "tags": ["Imports"],
                "summary": "Get import batch status",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/imports/{batchId}/audit": {
            "get": {
                "tags": ["Imports"],
                "summary": "List audit entries for a batch",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/imports/{batchId}/resolutions": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List pending conflict reviews",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Resolve a queued conflict",
                "parameters": [
                    {"name": "batchId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/adapters": {
            "get": {
                "tags": ["Imports"],
                "summary": "Registered source-format adapters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Produce a portable bundle for the tenant",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string", "description": "Target tenant (site administrators only)"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a bundle with a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Bundle archive"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/stats": {
            "get": {
                "tags": ["Stats"],
                "summary": "Per-tenant record counts and import status",
                "parameters": [
                    {"name": "institution", "in": "query", "type": "string", "description": "Target tenant (site administrators only)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ImportSummary": {
            "type": "object",
            "properties": {
                "batch_id": {"type": "string"},
                "state": {"type": "string"},
                "status": {"type": "string"},
                "dry_run": {"type": "boolean"},
                "adapter_id": {"type": "string"},
                "records_processed": {"type": "integer"},
                "created": {"type": "integer"},
                "updated": {"type": "integer"},
                "skipped": {"type": "integer"},
                "conflicts_detected": {"type": "integer"},
                "per_entity_breakdown": {"type": "object"},
                "warnings": {"type": "array", "items": {"type": "string"}},
                "errors": {"type": "array", "items": {"type": "string"}},
                "conflict_previews": {"type": "array", "items": {"type": "object"}}
            }
        },
        "AuditEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "batch_id": {"type": "string"},
                "operation": {"type": "string"},
                "entity_kind": {"type": "string"},
                "natural_key": {"type": "string"},
                "actor": {"type": "string"},
                "old_values": {"type": "object"},
                "new_values": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "PendingReview": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "batch_id": {"type": "string"},
                "entity_kind": {"type": "string"},
                "natural_key": {"type": "string"},
                "status": {"type": "string"},
                "diffs": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "ResolveReviewRequest": {
            "type": "object",
            "properties": {
                "review_id": {"type": "string"},
                "strategy": {"type": "string", "enum": ["use_mine", "use_theirs", "merge"]}
            },
            "required": ["review_id", "strategy"]
        },
        "UpdateOutcomeStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["DRAFT", "SUBMITTED", "APPROVED", "REJECTED", "NCI"]}
            },
            "required": ["status"]
        },
        "TenantStats": {
            "type": "object",
            "properties": {
                "institution_short_name": {"type": "string"},
                "record_counts": {"type": "object"},
                "last_batch_id": {"type": "string"},
                "last_batch_state": {"type": "string"},
                "last_import_at": {"type": "string"},
                "pending_reviews": {"type": "integer"},
                "stale": {"type": "boolean"}
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
                "pagination": {"type": "object"},
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
