package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "GEMA Points API",
        "description": "Points economy backend: awards, redemptions, ledger and activity reporting",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, tokens, password"},
        {"name": "Points", "description": "Point awards, balances, history, statements"},
        {"name": "Store", "description": "Store catalog and redemptions"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Categories", "description": "Point categories and bounds"},
        {"name": "Incidents", "description": "Incident log"},
        {"name": "Guardians", "description": "Guardians and student links"},
        {"name": "Activity", "description": "Calendar and recent activity"},
        {"name": "Audit", "description": "Audit trail"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Tokens and user info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/points/awards": {
            "post": {
                "tags": ["Points"],
                "summary": "Award or deduct points",
                "responses": {
                    "201": {"description": "Recorded point event", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Amount outside category bounds"},
                    "404": {"description": "Student or category not found"}
                }
            }
        },
        "/students/{id}/balance": {
            "get": {
                "tags": ["Points"],
                "summary": "Current point balance",
                "responses": {
                    "200": {"description": "Derived balance", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/points": {
            "get": {
                "tags": ["Points"],
                "summary": "Point event history",
                "responses": {
                    "200": {"description": "Paginated events", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/calendar": {
            "get": {
                "tags": ["Activity"],
                "summary": "Daily point totals",
                "responses": {
                    "200": {"description": "Zero-filled daily totals", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/statement": {
            "get": {
                "tags": ["Points"],
                "summary": "Download point statement (CSV or PDF)",
                "responses": {
                    "200": {"description": "Statement file"}
                }
            }
        },
        "/store/redemptions": {
            "post": {
                "tags": ["Store"],
                "summary": "Redeem a store item",
                "responses": {
                    "201": {"description": "Recorded redemption", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Item not found"},
                    "409": {"description": "Out of stock or insufficient points"}
                }
            },
            "get": {
                "tags": ["Store"],
                "summary": "List redemptions",
                "responses": {
                    "200": {"description": "Paginated redemptions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activity": {
            "get": {
                "tags": ["Activity"],
                "summary": "Recent activity feed",
                "responses": {
                    "200": {"description": "Merged feed, newest first", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit trail entries",
                "responses": {
                    "200": {"description": "Paginated audit entries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
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
