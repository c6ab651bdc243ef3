package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *InstancesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workflows/instances", c.RequireAuth(c.handleCreateInstance))
	mux.HandleFunc("POST /api/workflows/instances/search", c.RequireAuth(c.handleSearchInstances))
	mux.HandleFunc("GET /api/workflows/instances/byExternalId/{externalId}", c.RequireAuth(c.handleGetInstanceByExternalId))
	mux.HandleFunc("GET /api/workflows/instances/{id}", c.RequireAuth(c.handleGetInstanceById))
	mux.HandleFunc("POST /api/workflows/instances/{id}/decision", c.RequireAuth(c.handleDecision))
	mux.HandleFunc("POST /api/workflows/instances/{id}/cancel", c.RequireAuth(c.handleCancelInstance))
}

func (c *HistoryController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workflows/instances/{id}/history", c.RequireAuth(c.handleGetInstanceHistory))
	mux.HandleFunc("GET /api/workflows/history", c.RequireAuth(c.handleSearchHistory))
}

func (c *TemplatesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workflows/templates", c.RequireAuth(c.handleListTemplates))
	mux.HandleFunc("GET /api/workflows/templates/{type}", c.RequireAuth(c.handleGetTemplateByType))
}

func (c *NotificationsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", c.RequireAuth(c.handleListNotifications))
}

func (c *UsersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users", c.RequireAuth(c.handleGetUsers))
	mux.HandleFunc("POST /api/users", c.RequireAuth(c.handleCreateUser))
	mux.HandleFunc("GET /api/users/{id}", c.RequireAuth(c.handleGetUserById))
	mux.HandleFunc("DELETE /api/users/{id}", c.RequireAuth(c.handleDeleteUser))
}
