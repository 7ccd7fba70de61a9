package routes

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/script-hub/script-hub/internal/server"
)

// RegisterToolRoutes exposes the /-/tools diagnostics surface so operators
// can inspect the tool → origin bindings and effective TTLs.
func RegisterToolRoutes(app *fiber.App, registry *server.ToolRegistry, storageBackend string) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/tools", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"storage_backend": storageBackend,
			"tools":           encodeTools(registry.List()),
		}
		return c.JSON(payload)
	})
}

type toolPayload struct {
	Name       string `json:"name"`
	Origin     string `json:"origin"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

func encodeTools(routes []server.ToolRoute) []toolPayload {
	if len(routes) == 0 {
		return nil
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Config.Name < routes[j].Config.Name
	})
	result := make([]toolPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, toolPayload{
			Name:       route.Config.Name,
			Origin:     route.Config.Origin,
			TTLSeconds: int64(route.CacheTTL / time.Second),
		})
	}
	return result
}
