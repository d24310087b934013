// Package docs holds the swagger spec served at /swagger. Regenerate with
// swag init when handler annotations change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault": {
            "get": {
                "tags": ["vault"],
                "summary": "Vault accounting summary",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/deposits": {
            "post": {
                "tags": ["vault"],
                "summary": "Deposit underlying for shares",
                "parameters": [
                    {"name": "X-Caller-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/withdrawals": {
            "post": {
                "tags": ["vault"],
                "summary": "Redeem shares for underlying",
                "parameters": [
                    {"name": "X-Caller-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/withdrawals/preview": {
            "get": {
                "tags": ["vault"],
                "summary": "Preview a withdrawal at current totals",
                "parameters": [
                    {"name": "shares", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/yield": {
            "post": {
                "tags": ["vault"],
                "summary": "Apply a keeper-reported yield adjustment",
                "parameters": [
                    {"name": "X-Caller-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/events": {
            "get": {
                "tags": ["vault"],
                "summary": "Journal of vault operations",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vault/rates": {
            "get": {
                "tags": ["vault"],
                "summary": "Exchange-rate history",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/roles": {
            "get": {
                "tags": ["roles"],
                "summary": "Role membership and pause state",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/strategies": {
            "get": {
                "tags": ["strategies"],
                "summary": "List strategies",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["strategies"],
                "summary": "Register a strategy",
                "parameters": [
                    {"name": "X-Caller-ID", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/stream": {
            "get": {
                "tags": ["stream"],
                "summary": "Live vault event stream (websocket)",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Vault Accounting API",
	Description:      "Pooled-asset vault accounting, role management, and strategy registry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
