// Package docs registers the OpenAPI description served at /swagger.
package docs

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
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/vessels": {
            "post": {
                "tags": ["vessels"],
                "summary": "Register a purchased cargo",
                "responses": {"200": {"description": "OK"}}
            },
            "get": {
                "tags": ["vessels"],
                "summary": "List vessels",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/sales": {
            "post": {
                "tags": ["sales"],
                "summary": "Book a client sale against a vessel",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/sales/{id}/pru": {
            "get": {
                "tags": ["sales"],
                "summary": "Price a sale position",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/resales": {
            "post": {
                "tags": ["resales"],
                "summary": "List a slice of an owned sale on the secondary market",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/bids/{id}/accept": {
            "post": {
                "tags": ["bids"],
                "summary": "Accept a bid and settle the trade",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/pnl/vessels/{id}": {
            "get": {
                "tags": ["pnl"],
                "summary": "Profit breakdown for one vessel",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "graindesk API",
	Description:      "Grain desk position, hedge, and resale settlement engine",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
