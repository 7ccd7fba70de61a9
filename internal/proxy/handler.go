// Package proxy contains the coordinator that sequences the cache-first
// protocol: look up the key, serve a hit directly, or fetch the origin once,
// hand one copy of the body to the caller, and store the other copy in the
// background without delaying the response.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/script-hub/script-hub/internal/cache"
	"github.com/script-hub/script-hub/internal/logging"
	"github.com/script-hub/script-hub/internal/origin"
	"github.com/script-hub/script-hub/internal/server"
	"github.com/script-hub/script-hub/internal/tasks"
)

// HeaderCacheStatus is the diagnostic header telling callers whether the
// response came from the store or the origin.
const HeaderCacheStatus = "X-Cache-Status"

// Cache status tags. Computed once per request; diagnostic only.
const (
	CacheStatusHit  = "HIT"
	CacheStatusMiss = "MISS"
)

const plainTextUTF8 = "text/plain; charset=utf-8"

// Handler coordinates store, fetcher, and scheduler for one tool request.
type Handler struct {
	fetcher   *origin.Fetcher
	logger    *logrus.Logger
	store     cache.Store
	scheduler *tasks.Scheduler
}

// NewHandler wires the coordinator with its injected collaborators.
func NewHandler(fetcher *origin.Fetcher, logger *logrus.Logger, store cache.Store, scheduler *tasks.Scheduler) *Handler {
	return &Handler{
		fetcher:   fetcher,
		logger:    logger,
		store:     store,
		scheduler: scheduler,
	}
}

// Handle runs the per-request state machine in strict order: key → lookup →
// (hit | fetch → split → schedule store → stream). Everything past the
// scheduled store is caller-invisible.
func (h *Handler) Handle(c fiber.Ctx, route *server.ToolRoute) error {
	started := time.Now()
	requestID := server.RequestID(c)
	originURL := route.OriginURL.String()

	key, err := cache.ForURL(originURL)
	if err != nil {
		h.logResult(route, requestID, CacheStatusMiss, 0, started, err)
		return writeError(c, fiber.StatusInternalServerError, "internal error")
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	entry, err := h.store.Lookup(ctx, key)
	switch {
	case err == nil:
		return h.serveHit(c, route, entry, requestID, started)
	case errors.Is(err, cache.ErrNotFound):
		// routine miss
	default:
		// A degraded store must not take the service down; fall through to
		// the origin.
		h.logger.WithError(err).
			WithFields(logrus.Fields{"tool": route.Config.Name, "key": key.String()}).
			Warn("cache_lookup_failed")
	}

	return h.fetchAndStream(c, route, key, requestID, started, ctx)
}

func (h *Handler) serveHit(
	c fiber.Ctx,
	route *server.ToolRoute,
	entry *cache.Entry,
	requestID string,
	started time.Time,
) error {
	contentType := entry.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = plainTextUTF8
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, cacheControl(route.CacheTTL))
	c.Set(HeaderCacheStatus, CacheStatusHit)
	c.Response().Header.SetContentLength(len(entry.Body))
	c.Status(entry.Status)

	if c.Method() == http.MethodHead {
		h.logResult(route, requestID, CacheStatusHit, entry.Status, started, nil)
		return nil
	}

	_, err := io.Copy(c.Response().BodyWriter(), bytes.NewReader(entry.Body))
	h.logResult(route, requestID, CacheStatusHit, entry.Status, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("serve cache failed: %v", err))
	}
	return nil
}

func (h *Handler) fetchAndStream(
	c fiber.Ctx,
	route *server.ToolRoute,
	key cache.Key,
	requestID string,
	started time.Time,
	ctx context.Context,
) error {
	result, err := h.fetcher.Fetch(ctx, route.OriginURL.String(), origin.FetchOptions{
		EdgeTTL:         route.CacheTTL,
		CacheEverything: true,
	})
	if err != nil {
		h.logResult(route, requestID, CacheStatusMiss, 0, started, err)
		var statusErr *origin.UpstreamStatusError
		if errors.As(err, &statusErr) {
			return writeError(c, fiber.StatusBadGateway,
				fmt.Sprintf("upstream error: status %d", statusErr.Status))
		}
		return writeError(c, fiber.StatusInternalServerError, "origin unreachable")
	}

	callerBody, storeBody, err := result.Body.Tee()
	if err != nil {
		result.Body.Close()
		h.logResult(route, requestID, CacheStatusMiss, result.Status, started, err)
		return writeError(c, fiber.StatusInternalServerError, "internal error")
	}

	// The store task is registered before the first caller byte is written;
	// its outcome never reaches this request.
	if result.Cacheable {
		h.scheduleStore(route, key, result.Status, storeBody)
	} else {
		storeBody.Close()
	}

	c.Set(fiber.HeaderContentType, plainTextUTF8)
	c.Set(fiber.HeaderCacheControl, cacheControl(route.CacheTTL))
	c.Set(HeaderCacheStatus, CacheStatusMiss)
	c.Status(result.Status)

	if c.Method() == http.MethodHead {
		callerBody.Close()
		h.logResult(route, requestID, CacheStatusMiss, result.Status, started, nil)
		return nil
	}

	_, err = io.Copy(c.Response().BodyWriter(), callerBody)
	callerBody.Close()
	h.logResult(route, requestID, CacheStatusMiss, result.Status, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("origin stream failed: %v", err))
	}
	return nil
}

// scheduleStore registers the background population task: materialize the
// second branch and put it under the key with the route TTL.
func (h *Handler) scheduleStore(route *server.ToolRoute, key cache.Key, status int, storeBody io.ReadCloser) {
	tool := route.Config.Name
	ttl := route.CacheTTL

	h.scheduler.Register("cache_store", func(ctx context.Context) error {
		defer storeBody.Close()

		payload, err := io.ReadAll(storeBody)
		if err != nil {
			return fmt.Errorf("materialize body for %s: %w", tool, err)
		}

		entry := &cache.Entry{
			Status:   status,
			Header:   http.Header{fiber.HeaderContentType: []string{plainTextUTF8}},
			Body:     payload,
			StoredAt: time.Now().UTC(),
		}
		if err := h.store.Put(ctx, key, entry, ttl); err != nil {
			return fmt.Errorf("store %s: %w", tool, err)
		}
		return nil
	})
}

func (h *Handler) logResult(
	route *server.ToolRoute,
	requestID string,
	cacheStatus string,
	upstreamStatus int,
	started time.Time,
	err error,
) {
	fields := logging.RequestFields(
		route.Config.Name,
		route.Config.Origin,
		cacheStatus,
		requestID,
	)
	fields["action"] = "proxy"
	fields["upstream_status"] = upstreamStatus
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

func cacheControl(ttl time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int64(ttl/time.Second))
}

func writeError(c fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, plainTextUTF8)
	return c.Status(status).SendString(message + "\n")
}
