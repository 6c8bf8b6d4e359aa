// Package docs is generated by swag from the handler annotations.
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
        "/v1/polls": {
            "get": {
                "description": "Returns poll names and ids in catalog order. Voting links are only revealed after payment.",
                "produces": ["application/json"],
                "tags": ["gated-voting"],
                "summary": "List votable polls",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ListPollsResponse"}}
                }
            }
        },
        "/v1/sessions/{user_id}/messages": {
            "post": {
                "description": "Advances the session with a poll name or a wallet address.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["gated-voting"],
                "summary": "Send a message into a voting session",
                "parameters": [
                    {"type": "string", "description": "API user id", "name": "user_id", "in": "path", "required": true},
                    {"description": "Message text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.SubmitMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReplyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/sessions/{user_id}/vote": {
            "post": {
                "description": "Moves the user to poll selection and returns the poll list prompt.",
                "produces": ["application/json"],
                "tags": ["gated-voting"],
                "summary": "Start a voting session",
                "parameters": [
                    {"type": "string", "description": "API user id", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReplyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/v1/users/{user_id}/votes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["gated-voting"],
                "summary": "List a user's vote credentials",
                "parameters": [
                    {"type": "string", "description": "API user id", "name": "user_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.UserVotesResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "http.ListPollsResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.PollItem"}}
            }
        },
        "http.PollItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "http.ReplyResponse": {
            "type": "object",
            "properties": {
                "link": {"type": "string"},
                "outcome": {"type": "string"},
                "poll_name": {"type": "string"},
                "stage": {"type": "string"},
                "text": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "http.SubmitMessageRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            }
        },
        "http.UserVotesResponse": {
            "type": "object",
            "properties": {
                "poll_ids": {"type": "array", "items": {"type": "string"}},
                "user_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SlothSafe Voting API",
	Description:      "Payment-gated voting sessions backed by Hedera mirror node verification.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
