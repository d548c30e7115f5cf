package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Skolaris Data Gateway",
        "description": "Generic table data access with academic-year write gating",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Tables", "description": "Generic filtered access to allow-listed tables"},
        {"name": "Years", "description": "Academic year lifecycle (activate, archive, status)"}
    ],
    "paths": {
        "/tables/{table}": {
            "get": {
                "tags": ["Tables"],
                "summary": "Query a table",
                "parameters": [
                    {"name": "table", "in": "path", "required": true, "type": "string"},
                    {"name": "select", "in": "query", "type": "string"},
                    {"name": "eq", "in": "query", "type": "string", "description": "[field, value] tuple, repeatable"},
                    {"name": "neq", "in": "query", "type": "string"},
                    {"name": "in", "in": "query", "type": "string"},
                    {"name": "gt", "in": "query", "type": "string"},
                    {"name": "lt", "in": "query", "type": "string"},
                    {"name": "gte", "in": "query", "type": "string"},
                    {"name": "lte", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "single", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown table, invalid identifier or malformed filter"}
                }
            },
            "post": {
                "tags": ["Tables"],
                "summary": "Insert one object or an array of objects",
                "responses": {
                    "201": {"description": "Inserted rows"},
                    "403": {"description": "YEAR_ARCHIVED or YEAR_NOT_CURRENT"}
                }
            },
            "patch": {
                "tags": ["Tables"],
                "summary": "Update matched rows",
                "responses": {
                    "200": {"description": "Updated rows"},
                    "404": {"description": "No row matched"}
                }
            },
            "delete": {
                "tags": ["Tables"],
                "summary": "Delete matched rows",
                "responses": {
                    "200": {"description": "Row count"},
                    "400": {"description": "Delete without filters is refused"}
                }
            }
        },
        "/years": {
            "get": {"tags": ["Years"], "summary": "List academic years", "responses": {"200": {"description": "Years"}}},
            "post": {"tags": ["Years"], "summary": "Create an academic year", "responses": {"201": {"description": "Created"}}}
        },
        "/years/{id}/status": {
            "get": {
                "tags": ["Years"],
                "summary": "Derived lifecycle status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Status"}}
            }
        },
        "/years/{id}/activate": {
            "post": {
                "tags": ["Years"],
                "summary": "Make the year the single current one",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Activated"}, "403": {"description": "YEAR_ARCHIVED"}}
            }
        },
        "/years/{id}/archive": {
            "post": {
                "tags": ["Years"],
                "summary": "Snapshot grades and freeze the year",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Snapshot count"}, "403": {"description": "Already archived"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
