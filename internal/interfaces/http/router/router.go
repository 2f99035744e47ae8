// Package router assembles the versioned grants API on a gin engine.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/schoolgrants/backend/internal/interfaces/http/handler"
)

// RouteRegistrar registers a set of routes under the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a RouteRegistrar for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registrar under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup collects the routes of one resource under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

// NewDomainGroup creates a new domain route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group only
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string { return dg.name }

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Handlers bundles the grants API handlers
type Handlers struct {
	System         *handler.SystemHandler
	Settings       *handler.SettingsHandler
	Budget         *handler.BudgetHandler
	Accountability *handler.AccountabilityHandler
}

// SettingsRoutes mounts /settings/capitation
func SettingsRoutes(h *handler.SettingsHandler) *DomainGroup {
	return NewDomainGroup("settings", "/settings/capitation").
		GET("", h.List).
		GET("/:academicYear", h.Get).
		PUT("/:academicYear", h.Upsert).
		DELETE("/:academicYear", h.Delete).
		GET("/:academicYear/resolve", h.Resolve)
}

// BudgetRoutes mounts /budget
func BudgetRoutes(h *handler.BudgetHandler) *DomainGroup {
	return NewDomainGroup("budget", "/budget").
		POST("", h.Submit).
		GET("/:id", h.Get).
		GET("/:id/eligibility", h.Eligibility).
		POST("/:id/review", h.Review)
}

// AccountabilityRoutes mounts /accountability
func AccountabilityRoutes(h *handler.AccountabilityHandler) *DomainGroup {
	return NewDomainGroup("accountability", "/accountability").
		GET("", h.List).
		GET("/:id", h.Get).
		PATCH("/:id/approve", h.Approve).
		PATCH("/:id/disburse", h.Disburse).
		PATCH("/:id/returned-funds", h.ReturnedFunds).
		PATCH("/:id/held-funds", h.HeldFunds).
		POST("/:id/revenues", h.Revenue).
		POST("/:id/expenditures", h.Expenditure).
		POST("/:id/accounting", h.AddEntry).
		PATCH("/:id/accounting/:entryId", h.UpdateEntry).
		DELETE("/:id/accounting/:entryId", h.DeleteEntry).
		POST("/:id/accounting/:entryId/receipt", h.RequestReceiptUpload).
		GET("/:id/accounting/:entryId/receipt", h.ReceiptDownload).
		GET("/:id/financial-summary", h.FinancialSummary).
		POST("/:id/financial-summary/refresh", h.RefreshFinancialSummary)
}

// SystemRoutes mounts /system
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}

// Mount registers the grants API and the unversioned health probe
func Mount(engine *gin.Engine, h Handlers, opts ...RouterOption) *Router {
	engine.GET("/health", h.System.Health)
	r := NewRouter(engine, opts...)
	r.Register(
		SystemRoutes(h.System),
		SettingsRoutes(h.Settings),
		BudgetRoutes(h.Budget),
		AccountabilityRoutes(h.Accountability),
	)
	r.Setup()
	return r
}
