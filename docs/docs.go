// Package docs holds the OpenAPI description served under /swagger. It mirrors
// the swag annotations on the handlers; the route test in internal/handlers
// keeps the two in sync.
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
        "/health": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "system"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    }
                }
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Sign up an operator",
                "parameters": [
                    {
                        "description": "Operator credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.signUpRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Sign in",
                "parameters": [
                    {
                        "description": "Operator credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.authCredentials"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/statuses": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Every machine status in workflow order with its label, icon and color.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "machines"
                ],
                "summary": "List lifecycle statuses",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/technicians": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "machines"
                ],
                "summary": "List technicians",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Machines at the center with their resolved view and offered actions.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "machines"
                ],
                "summary": "List machines",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Status filter",
                        "name": "status",
                        "in": "query",
                        "enum": [
                            "NEW",
                            "UNDER_INSPECTION",
                            "REPAIRING",
                            "WAITING_APPROVAL",
                            "REPAIRED",
                            "TOTAL_LOSS",
                            "RETURNED"
                        ]
                    },
                    {
                        "type": "string",
                        "description": "Origin branch id",
                        "name": "branchId",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Search by serial number or model",
                        "name": "q",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "machines"
                ],
                "summary": "Get machine",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/assign": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Assign technician",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Technician",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.AssignInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/inspect": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Begin inspection",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Inspection findings",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.InspectInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/start-repair": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Moves an inspected machine into repair. repairType is FREE or PAID.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Start repair",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Repair details",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.StartRepairInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/request-approval": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Request cost approval",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Cost request",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.RequestApprovalInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/total-loss": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Mark total loss",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Reason",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.TotalLossInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/complete-repair": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "finalCost defaults to the machine's estimated cost when omitted.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Complete repair",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Voucher",
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.CompleteRepairInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/machines/{id}/return": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "actions"
                ],
                "summary": "Return to branch",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Waybill",
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.ReturnInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.MachineView"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/return-packages/preview": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Groups the selection by origin branch and lists machines that cannot be included.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "return-packages"
                ],
                "summary": "Preview return package",
                "parameters": [
                    {
                        "description": "Selection",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.ReturnPackageInput"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/return-packages": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Creates one return order per origin branch. Every selected machine must be REPAIRED or TOTAL_LOSS.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "return-packages"
                ],
                "summary": "Create return package",
                "parameters": [
                    {
                        "description": "Selection and driver details",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/lifecycle.ReturnPackageInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "502": {
                        "description": "Bad Gateway",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/journal": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Filter journal entries by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'), type and machine. A date-only 'to' covers the whole day.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "journal"
                ],
                "summary": "Action journal",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Start of range",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "End of range. Date-only treated as end of day.",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Entry type, e.g. BEGIN_INSPECTION, ACTION_FAILED, STATUS_CHANGE",
                        "name": "type",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Machine id",
                        "name": "machineId",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/ws": {
            "get": {
                "description": "WebSocket. Sends a \"machines\" envelope on connect and every interval, and a \"changes\" envelope whenever a refresh detects status changes. Pass the token as a Bearer header or ?token=.",
                "tags": [
                    "machines"
                ],
                "summary": "Machine feed",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Access token when headers cannot be set",
                        "name": "token",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Snapshot interval, e.g. 30s (1s..5m)",
                        "name": "interval",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Snapshot interval in milliseconds",
                        "name": "interval_ms",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Status filter",
                        "name": "status",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Origin branch id",
                        "name": "branchId",
                        "in": "query"
                    }
                ],
                "responses": {
                    "101": {
                        "description": "Switching Protocols",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "properties": {
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            },
            "required": [
                "username",
                "password"
            ]
        },
        "handlers.signUpRequest": {
            "type": "object",
            "properties": {
                "username": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                },
                "display_name": {
                    "type": "string"
                }
            },
            "required": [
                "username",
                "password"
            ]
        },
        "lifecycle.Part": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "quantity": {
                    "type": "integer"
                }
            }
        },
        "lifecycle.AssignInput": {
            "type": "object",
            "properties": {
                "technicianId": {
                    "type": "string"
                }
            }
        },
        "lifecycle.InspectInput": {
            "type": "object",
            "properties": {
                "problemDescription": {
                    "type": "string"
                },
                "estimatedCost": {
                    "type": "number"
                },
                "requiredParts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.Part"
                    }
                }
            }
        },
        "lifecycle.StartRepairInput": {
            "type": "object",
            "properties": {
                "repairType": {
                    "type": "string",
                    "enum": [
                        "FREE",
                        "PAID"
                    ]
                },
                "estimatedCost": {
                    "type": "number"
                },
                "requiredParts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.Part"
                    }
                }
            }
        },
        "lifecycle.RequestApprovalInput": {
            "type": "object",
            "properties": {
                "cost": {
                    "type": "number"
                },
                "reason": {
                    "type": "string"
                },
                "parts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.Part"
                    }
                }
            }
        },
        "lifecycle.TotalLossInput": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "lifecycle.CompleteRepairInput": {
            "type": "object",
            "properties": {
                "finalCost": {
                    "type": "number"
                },
                "voucherNumber": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "lifecycle.ReturnInput": {
            "type": "object",
            "properties": {
                "returnNotes": {
                    "type": "string"
                },
                "waybillNumber": {
                    "type": "string"
                }
            }
        },
        "lifecycle.ReturnPackageInput": {
            "type": "object",
            "properties": {
                "machineIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "notes": {
                    "type": "string"
                },
                "driverName": {
                    "type": "string"
                },
                "driverPhone": {
                    "type": "string"
                }
            }
        },
        "lifecycle.Action": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string"
                },
                "repairType": {
                    "type": "string"
                }
            }
        },
        "lifecycle.Descriptor": {
            "type": "object",
            "properties": {
                "label": {
                    "type": "string"
                },
                "icon": {
                    "type": "string"
                },
                "color": {
                    "type": "string"
                }
            }
        },
        "lifecycle.ApprovalNotice": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "PENDING",
                        "APPROVED",
                        "REJECTED"
                    ]
                },
                "repairMayBegin": {
                    "type": "boolean"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "lifecycle.View": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "NEW",
                        "UNDER_INSPECTION",
                        "REPAIRING",
                        "WAITING_APPROVAL",
                        "REPAIRED",
                        "TOTAL_LOSS",
                        "RETURNED"
                    ]
                },
                "descriptor": {
                    "$ref": "#/definitions/lifecycle.Descriptor"
                },
                "actions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/lifecycle.Action"
                    }
                },
                "approval": {
                    "$ref": "#/definitions/lifecycle.ApprovalNotice"
                },
                "terminal": {
                    "type": "boolean"
                }
            }
        },
        "models.Ref": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                }
            }
        },
        "models.ApprovalRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string",
                    "enum": [
                        "PENDING",
                        "APPROVED",
                        "REJECTED"
                    ]
                },
                "cost": {
                    "type": "number"
                },
                "reason": {
                    "type": "string"
                },
                "responseNotes": {
                    "type": "string"
                },
                "requestedAt": {
                    "type": "string"
                },
                "respondedAt": {
                    "type": "string"
                }
            }
        },
        "models.RepairVoucher": {
            "type": "object",
            "properties": {
                "number": {
                    "type": "string"
                },
                "finalCost": {
                    "type": "number"
                },
                "issuedAt": {
                    "type": "string"
                }
            }
        },
        "service.MachineView": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "serialNumber": {
                    "type": "string"
                },
                "model": {
                    "type": "string"
                },
                "manufacturer": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "NEW",
                        "UNDER_INSPECTION",
                        "REPAIRING",
                        "WAITING_APPROVAL",
                        "REPAIRED",
                        "TOTAL_LOSS",
                        "RETURNED"
                    ]
                },
                "assignedTechnician": {
                    "$ref": "#/definitions/models.Ref"
                },
                "originBranch": {
                    "$ref": "#/definitions/models.Ref"
                },
                "approvalRequest": {
                    "$ref": "#/definitions/models.ApprovalRequest"
                },
                "estimatedCost": {
                    "type": "number"
                },
                "finalCost": {
                    "type": "number"
                },
                "repairVoucher": {
                    "$ref": "#/definitions/models.RepairVoucher"
                },
                "daysAtCenter": {
                    "type": "integer"
                },
                "updatedAt": {
                    "type": "string"
                },
                "view": {
                    "$ref": "#/definitions/lifecycle.View"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Maintenance Center Console API",
	Description:      "Operator console for machines under repair at the maintenance center.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
