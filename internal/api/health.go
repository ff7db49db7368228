// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/comicverse/internal/platform/constants"
	"github.com/taibuivan/comicverse/internal/platform/ctxutil"
	"github.com/taibuivan/comicverse/internal/platform/respond"
)

// readinessTimeout bounds every dependency probe of a single /ready call.
const readinessTimeout = 3 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthDependencies maps dependency names (postgres, redis, assets) to their probes.
type HealthDependencies map[string]HealthCheck

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{constants.FieldStatus: "ok"})
}

// readiness handles GET /ready (Readiness probe). Probes run concurrently; one
// failing probe does not cancel the others.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	names := slices.Sorted(maps.Keys(handler.dependencies))
	results := make([]checkResult, len(names))

	var group errgroup.Group
	for i, name := range names {
		check := handler.dependencies[name]
		group.Go(func() error {
			results[i] = checkResult{Name: name, IsOK: true}
			if err := check(ctx); err != nil {
				results[i].IsOK = false
				results[i].Error = err.Error()
				ctxutil.LoggerOr(ctx, handler.logger).Error("readiness_check_failed",
					slog.String("dependency", name),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = group.Wait()

	responseStatus := "ready"
	httpStatus := http.StatusOK
	for _, result := range results {
		if !result.IsOK {
			responseStatus = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		constants.FieldStatus: responseStatus,
		constants.FieldChecks: results,
	}})
}
