package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/econopulse/optionpulse/internal/domain/models"
	drepo "github.com/econopulse/optionpulse/internal/domain/repository"
	"github.com/econopulse/optionpulse/internal/service/ratelimit"
	"github.com/econopulse/optionpulse/internal/usecase"
	xhttp "github.com/econopulse/optionpulse/pkg/http"
	xlogger "github.com/econopulse/optionpulse/pkg/logger"
	"github.com/econopulse/optionpulse/pkg/util"
)

const screenerRoute = "options-screener"

// ScreenerEchoHandler serves the options screener API.
type ScreenerEchoHandler struct {
	logger   *xlogger.Logger
	screener *usecase.Screener
	limiter  *ratelimit.Limiter
	metrics  drepo.Metrics
	store    drepo.SnapshotStore // nil when no storage backend is configured
}

func NewScreenerEchoHandler(
	logger *xlogger.Logger,
	screener *usecase.Screener,
	limiter *ratelimit.Limiter,
	metrics drepo.Metrics,
	store drepo.SnapshotStore,
) *ScreenerEchoHandler {
	return &ScreenerEchoHandler{
		logger:   logger,
		screener: screener,
		limiter:  limiter,
		metrics:  metrics,
		store:    store,
	}
}

func (h *ScreenerEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/options")
	g.GET("/screener", h.Screener)
}

// Screener handles GET /api/options/screener. Rate limit headers are present
// on every response, including rejections.
func (h *ScreenerEchoHandler) Screener(c echo.Context) error {
	ctx := c.Request().Context()

	key := screenerRoute + ":" + xhttp.ClientIP(c.Request())
	res := h.limiter.Allow(ctx, key)
	setRateLimitHeaders(c, res)

	if !res.OK {
		h.metrics.RecordRateLimited(screenerRoute)
		return c.JSON(http.StatusTooManyRequests, map[string]string{
			"error": "rate_limited",
		})
	}

	req := &models.ScreenerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.screener.Snapshot(ctx, util.SplitSymbols(req.Universe), req.Limit)
	if err != nil {
		h.logger.Error("screener snapshot failed", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "internal error",
		})
	}

	// No caching: a replayed envelope would carry stale rate limit headers.
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, toResponse(snap))
}

// Health handles GET /healthz. With a storage backend configured its
// connectivity is probed; a failing backend degrades the status but the
// endpoint still answers 200 since the API itself can serve.
func (h *ScreenerEchoHandler) Health(c echo.Context) error {
	body := map[string]string{"status": "ok"}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Health(ctx); err != nil {
			body["status"] = "degraded"
			body["backend"] = "unreachable"
		} else {
			body["backend"] = "ok"
		}
	}
	return c.JSON(http.StatusOK, body)
}

func setRateLimitHeaders(c echo.Context, res ratelimit.Result) {
	hdr := c.Response().Header()
	hdr.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	hdr.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	hdr.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func toResponse(snap *models.Snapshot) *models.ScreenerResponse {
	return &models.ScreenerResponse{
		Success:    true,
		AsOf:       snap.AsOf.UTC().Format(time.RFC3339),
		Universe:   snap.Universe,
		Counts:     models.Counts{Total: snap.Total},
		MostActive: snap.MostActive,
		TopGainers: snap.TopGainers,
		TopLosers:  snap.TopLosers,
		HighestIV:  snap.HighestIV,
		HighestOI:  snap.HighestOI,
	}
}
