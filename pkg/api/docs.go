package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/collections": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["collections"],
                "summary": "List collections",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/collections/{name}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["collections"],
                "summary": "Drop a collection",
                "parameters": [{"type": "string", "description": "Collection name", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/export": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/zip"],
                "tags": ["transfer"],
                "summary": "Export collections",
                "parameters": [
                    {"type": "string", "description": "json, csv or bson (bson is CRC32-framed CBOR, not MongoDB BSON)", "name": "format", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Collections to export, all when omitted", "name": "collection", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/import": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["transfer"],
                "summary": "Import a file",
                "description": "Import a zip archive or a single json, csv or bson file. bson is CRC32-framed CBOR, not MongoDB BSON.",
                "parameters": [
                    {"type": "file", "description": "Archive or collection file", "name": "toimport", "in": "formData", "required": true},
                    {"type": "boolean", "description": "Replace existing collections", "name": "drop", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "docport REST API",
	Description:      "Export stored document collections as zip archives and import archives or single files.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
