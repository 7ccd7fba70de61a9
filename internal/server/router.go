package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProxyHandler describes the component that serves a tool route from cache
// or origin. It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, *ToolRoute) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, *ToolRoute) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, route *ToolRoute) error {
	return f(c, route)
}

// AppOptions controls how the Fiber application behaves.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *ToolRegistry
	Proxy      ProxyHandler
	ListenPort int
}

const (
	contextKeyRoute     = "_scripthub_route"
	contextKeyRequestID = "_scripthub_request_id"

	plainTextUTF8 = "text/plain; charset=utf-8"
)

// NewApp builds the Fiber application with tool-name routing middleware and
// plain-text error rendering.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		route, _ := getRouteFromContext(c)
		if route == nil {
			return renderUsage(c, opts.Registry)
		}
		return opts.Proxy.Handle(c, route)
	})

	return app, nil
}

// requestContextMiddleware assigns the request ID and resolves the tool name
// in the first path segment to a ToolRoute.
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		name := toolNameFromPath(path)
		if name == "" {
			// Root path; the catch-all renders the usage page.
			return c.Next()
		}

		method := c.Method()
		if method != fiber.MethodGet && method != fiber.MethodHead {
			return renderMethodNotAllowed(c)
		}

		route, ok := opts.Registry.Lookup(name)
		if !ok {
			return renderUnknownTool(c, opts.Logger, opts.Registry, name)
		}

		c.Locals(contextKeyRoute, route)
		return c.Next()
	}
}

// toolNameFromPath extracts the tool identifier: the trimmed request path.
// Tool names never contain slashes, so nested paths fall through to the
// unknown-tool listing.
func toolNameFromPath(path string) string {
	return strings.Trim(path, "/")
}

func renderUnknownTool(c fiber.Ctx, logger *logrus.Logger, registry *ToolRegistry, name string) error {
	logger.WithFields(logrus.Fields{
		"action": "tool_lookup",
		"tool":   name,
	}).Warn("unknown tool")

	var b strings.Builder
	fmt.Fprintf(&b, "unknown tool: %s\n\nknown tools:\n", name)
	for _, known := range registry.Names() {
		fmt.Fprintf(&b, "  %s\n", known)
	}

	c.Set(fiber.HeaderContentType, plainTextUTF8)
	return c.Status(fiber.StatusNotFound).SendString(b.String())
}

func renderMethodNotAllowed(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, plainTextUTF8)
	c.Set(fiber.HeaderAllow, "GET, HEAD")
	return c.Status(fiber.StatusMethodNotAllowed).SendString("only GET and HEAD are supported\n")
}

// renderUsage is the home page: how to call the service plus the registered
// tool names.
func renderUsage(c fiber.Ctx, registry *ToolRegistry) error {
	var b strings.Builder
	b.WriteString("script-hub: cached installer scripts\n\n")
	b.WriteString("usage:\n  curl -fsSL http://<host>/<tool> | sh\n\ntools:\n")
	for _, route := range registry.List() {
		fmt.Fprintf(&b, "  %-12s %s\n", strings.ToLower(strings.TrimSpace(route.Config.Name)), route.Config.Origin)
	}

	c.Set(fiber.HeaderContentType, plainTextUTF8)
	return c.Status(fiber.StatusOK).SendString(b.String())
}

func getRouteFromContext(c fiber.Ctx) (*ToolRoute, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*ToolRoute); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
