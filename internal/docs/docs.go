// Package docs holds the OpenAPI description served at /swagger.
// Regenerate from the handler annotations with:
//
//	swag init -g cmd/api/main.go -o internal/docs
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
        "/": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["dashboard"],
                "summary": "Dashboard",
                "responses": {
                    "200": {"description": "Dashboard", "schema": {"$ref": "#/definitions/services.Dashboard"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/register": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "User registered", "schema": {"$ref": "#/definitions/handlers.RegisterResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Email or username already registered", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/login": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login form",
                "parameters": [{"type": "string", "name": "next", "in": "query"}],
                "responses": {"200": {"description": "Form state"}}
            },
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login user",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}},
                    {"type": "string", "name": "next", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Session opened", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "303": {"description": "Redirect to next"},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {
                    "200": {"description": "Logged out", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "302": {"description": "Redirect to the login page"}
                }
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["user"],
                "summary": "Get user profile",
                "responses": {"200": {"description": "User profile", "schema": {"$ref": "#/definitions/handlers.UserResponse"}}}
            }
        },
        "/add": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["expenses"],
                "summary": "Expense form",
                "responses": {"200": {"description": "Form choices", "schema": {"$ref": "#/definitions/handlers.FormResponse"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "tags": ["expenses"],
                "summary": "Add an expense",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.ExpenseRequest"}}],
                "responses": {
                    "201": {"description": "Expense created", "schema": {"$ref": "#/definitions/models.Expense"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/edit/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["expenses"],
                "summary": "Edit form",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Expense and choices", "schema": {"$ref": "#/definitions/handlers.EditFormResponse"}},
                    "403": {"description": "Expense belongs to another user", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Expense not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "tags": ["expenses"],
                "summary": "Update expense",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.ExpenseRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated expense", "schema": {"$ref": "#/definitions/models.Expense"}},
                    "403": {"description": "Expense belongs to another user", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Expense not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Update failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/delete/{id}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["expenses"],
                "summary": "Delete expense",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Expense deleted", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "403": {"description": "Expense belongs to another user", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Expense not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/expenses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["expenses"],
                "summary": "List expenses",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "Paginated expenses"}}
            }
        },
        "/chart-data": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["dashboard"],
                "summary": "Chart data",
                "responses": {"200": {"description": "Chart series", "schema": {"$ref": "#/definitions/services.ChartSeries"}}}
            }
        },
        "/export/csv": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "tags": ["export"],
                "summary": "Export CSV",
                "responses": {"200": {"description": "CSV file", "schema": {"type": "file"}}}
            }
        },
        "/export/xlsx": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["export"],
                "summary": "Export XLSX",
                "responses": {"200": {"description": "XLSX file", "schema": {"type": "file"}}}
            }
        },
        "/budgets": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Get budgets",
                "responses": {"200": {"description": "Budgets", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Budget"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "tags": ["budgets"],
                "summary": "Create a budget",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateBudgetRequest"}}],
                "responses": {
                    "201": {"description": "Budget created", "schema": {"$ref": "#/definitions/models.Budget"}},
                    "409": {"description": "Budget already exists", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/budgets/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Get budget by ID",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Budget details", "schema": {"$ref": "#/definitions/models.Budget"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Update budget",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateBudgetRequest"}}
                ],
                "responses": {"200": {"description": "Updated budget", "schema": {"$ref": "#/definitions/models.Budget"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Delete budget",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Budget deleted", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}}}
            }
        },
        "/budgets/{id}/progress": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["budgets"],
                "summary": "Get budget progress",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "Budget progress", "schema": {"$ref": "#/definitions/services.BudgetProgress"}}}
            }
        },
        "/api/health": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "ok"}, "503": {"description": "database unreachable"}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorDetail": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "username"],
            "properties": {
                "email": {"type": "string", "maxLength": 120},
                "password": {"type": "string", "maxLength": 128},
                "username": {"type": "string", "maxLength": 80}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "next": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.UserResponse": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "handlers.RegisterResponse": {
            "type": "object",
            "properties": {
                "login_url": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/handlers.UserResponse"}
            }
        },
        "handlers.ExpenseRequest": {
            "type": "object",
            "required": ["amount", "category"],
            "properties": {
                "amount": {"type": "string", "example": "12.50"},
                "category": {"type": "string", "enum": ["Food", "Transport", "Shopping", "Entertainment", "Bills", "Other"]},
                "date": {"type": "string", "example": "2024-03-01"},
                "description": {"type": "string", "maxLength": 200}
            }
        },
        "handlers.FormResponse": {
            "type": "object",
            "properties": {"categories": {"type": "array", "items": {"type": "string"}}}
        },
        "handlers.EditFormResponse": {
            "type": "object",
            "properties": {
                "categories": {"type": "array", "items": {"type": "string"}},
                "expense": {"$ref": "#/definitions/models.Expense"}
            }
        },
        "handlers.CreateBudgetRequest": {
            "type": "object",
            "required": ["category", "limit"],
            "properties": {
                "category": {"type": "string"},
                "limit": {"type": "string", "example": "300.00"}
            }
        },
        "handlers.UpdateBudgetRequest": {
            "type": "object",
            "required": ["limit"],
            "properties": {"limit": {"type": "string", "example": "300.00"}}
        },
        "models.Expense": {
            "type": "object",
            "properties": {
                "amount": {"type": "string"},
                "category": {"type": "string"},
                "created_at": {"type": "string"},
                "date": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        },
        "models.Budget": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "limit": {"type": "string"},
                "updated_at": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        },
        "services.CategoryTotal": {
            "type": "object",
            "properties": {"category": {"type": "string"}, "total": {"type": "string"}}
        },
        "services.Dashboard": {
            "type": "object",
            "properties": {
                "categories": {"type": "array", "items": {"$ref": "#/definitions/services.CategoryTotal"}},
                "expenses": {"type": "array", "items": {"$ref": "#/definitions/models.Expense"}},
                "total_spent": {"type": "string"}
            }
        },
        "services.ChartSeries": {
            "type": "object",
            "properties": {
                "colors": {"type": "array", "items": {"type": "string"}},
                "data": {"type": "array", "items": {"type": "number"}},
                "labels": {"type": "array", "items": {"type": "string"}}
            }
        },
        "services.BudgetProgress": {
            "type": "object",
            "properties": {
                "budget_id": {"type": "integer"},
                "category": {"type": "string"},
                "limit": {"type": "string"},
                "percentage": {"type": "number"},
                "remaining": {"type": "string"},
                "spent": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the session token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ExpenseTrack API",
	Description:      "ExpenseTrack records personal expenses per user, summarises spending by category and exports the ledger.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
