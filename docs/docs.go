// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "Exchange credentials for a bearer token", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}}
        },
        "/carnivals": {
            "get": {"tags": ["carnivals"], "summary": "List carnivals", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["carnivals"], "summary": "Create a manually entered carnival", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/carnivals/{carnivalID}": {
            "get": {"tags": ["carnivals"], "summary": "Get a carnival", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["carnivals"], "summary": "Deactivate a carnival", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}}}
        },
        "/carnivals/{carnivalID}/claim": {
            "post": {"tags": ["ownership"], "summary": "Claim an imported carnival for the current user's club", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/carnivals/{carnivalID}/release": {
            "post": {"tags": ["ownership"], "summary": "Release a claimed imported carnival", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/carnivals/{carnivalID}/claim": {
            "post": {"tags": ["ownership"], "summary": "Assign an imported carnival to a club's primary delegate", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/carnivals/{carnivalID}/registrations": {
            "get": {"tags": ["registrations"], "summary": "List a carnival's attendance registrations", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["registrations"], "summary": "Organiser adds a club to the carnival", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/carnivals/{carnivalID}/register": {
            "post": {"tags": ["registrations"], "summary": "A club delegate registers their club", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/registrations/{registrationID}/approve": {
            "post": {"tags": ["registrations"], "summary": "Approve a registration", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/registrations/{registrationID}/reject": {
            "post": {"tags": ["registrations"], "summary": "Reject a registration with a reason", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Carnival System API",
	Description:      "Carnival ownership, attendance registration and fee management.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
