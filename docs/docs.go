// Package docs holds the swagger document of the inspection API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/runs": {
            "get": {
                "description": "Get all harness runs with their current status, newest first",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "responses": {
                    "200": {
                        "description": "List of runs",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/model.RunRecord"}
                        }
                    },
                    "500": {
                        "description": "Internal server error",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/runs/{id}": {
            "get": {
                "description": "Retrieve the status and configuration of a harness run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Run details", "schema": {"$ref": "#/definitions/model.RunRecord"}},
                    "400": {"description": "Invalid run ID", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Run not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/runs/{id}/stages": {
            "get": {
                "description": "Retrieve every stage transition of a harness run, in order",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run stages",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Run stages", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Invalid run ID", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Run not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/runs/{id}/errors": {
            "get": {
                "description": "Retrieve all errors recorded during a harness run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run errors",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Run errors", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Invalid run ID", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Run not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/runs/{id}/report": {
            "get": {
                "description": "Retrieve the document counts and index listings taken between the two script phases",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run report",
                "parameters": [
                    {"type": "string", "description": "Run ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Verification report", "schema": {"$ref": "#/definitions/model.RunReport"}},
                    "400": {"description": "Invalid run ID", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Run or report not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "model.RunRecord": {
            "description": "Pipeline run summary",
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "6b1f5c0e-3d0c-4a57-9a39-0d6a2b7f1c11"},
                "config": {"type": "string"},
                "status": {"type": "string", "example": "holding"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "model.Count": {
            "type": "object",
            "properties": {
                "collection": {"type": "string"},
                "documents": {"type": "integer"}
            }
        },
        "model.IndexListing": {
            "type": "object",
            "properties": {
                "collection": {"type": "string"},
                "indexes": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.RunReport": {
            "type": "object",
            "properties": {
                "generated_at": {"type": "string"},
                "connection_uri": {"type": "string"},
                "raw_counts": {"type": "array", "items": {"$ref": "#/definitions/model.Count"}},
                "derived_counts": {"type": "array", "items": {"$ref": "#/definitions/model.Count"}},
                "indexes": {"type": "array", "items": {"$ref": "#/definitions/model.IndexListing"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Migration Harness API",
	Description:      "Status of harness runs recorded in the tracking database.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
