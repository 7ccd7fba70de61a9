// Package server hosts the Fiber HTTP service, the request middleware chain,
// and the tool registry glue that wires path resolution into the proxy
// handler. It bootstraps Fiber, attaches recover and request-ID middleware,
// injects the ToolRegistry built from config, and exposes router
// constructors other packages (main, proxy) can reuse. Keep exports narrow
// and accept explicit dependencies.
package server
