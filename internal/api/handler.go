package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/cryptopulse/internal/analytics"
	"github.com/guttosm/cryptopulse/internal/domain/dto"
	"github.com/guttosm/cryptopulse/internal/middleware"
	"github.com/guttosm/cryptopulse/internal/refresh"
	"github.com/guttosm/cryptopulse/internal/service"
)

const (
	defaultTopAssets = 20
	defaultTopUsers  = 50
	maxLimit         = 1000
)

// Handler provides the read-only dashboard endpoints.
//
// Responsibilities:
//   - Validate the shared filter query parameters (symbol, exchange, from, to)
//   - Call the dashboard service with the request context
//   - Translate results into response DTOs
//   - Map a derivation that was never computed to 503 so clients retry
type Handler struct {
	svc service.DashboardService
}

// NewHandler constructs a Handler over svc.
func NewHandler(svc service.DashboardService) *Handler {
	return &Handler{svc: svc}
}

// GetSummary handles GET /api/v1/summary.
//
// Query Parameters:
//   - symbol (string, optional, repeatable or comma separated): e.g. "BTC-USD".
//   - exchange (string, optional): e.g. "BINANCE".
//   - from, to (string, optional): inclusive trade dates in YYYY-MM-DD format.
//
// Responses:
//   - 200 OK: headline cards over the filtered daily metrics.
//   - 400 Bad Request: invalid filter.
//   - 503 Service Unavailable: daily metrics not computed yet.
//   - 500 Internal Server Error: failure reading the derivations.
//
// GetSummary godoc
// @Summary      Dashboard summary cards
// @Description  Total trades, volume, notional, active traders and average trade size
// @Tags         dashboard
// @Produce      json
// @Param        symbol    query     []string  false  "Symbols"  collectionFormat(multi) example(BTC-USD)
// @Param        exchange  query     string    false  "Exchange" example(BINANCE)
// @Param        from      query     string    false  "First trade date (YYYY-MM-DD)" example(2024-01-01)
// @Param        to        query     string    false  "Last trade date (YYYY-MM-DD)"  example(2024-01-31)
// @Success      200       {object}  dto.SummaryResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Failure      500       {object}  dto.ErrorResponse
// @Router       /api/v1/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	f, echo, ok := bindFilter(c)
	if !ok {
		return
	}
	s, err := h.svc.Summary(c.Request.Context(), f)
	if err != nil {
		readFailed(c, "failed to compute summary", err)
		return
	}
	c.JSON(http.StatusOK, dto.SummaryResponse{Filters: echo, Summary: s})
}

// GetDailyMetrics godoc
// @Summary      Daily trading metrics
// @Description  Daily metrics per trade date, symbol and exchange, newest first
// @Tags         dashboard
// @Produce      json
// @Param        symbol    query     []string  false  "Symbols"  collectionFormat(multi)
// @Param        exchange  query     string    false  "Exchange"
// @Param        from      query     string    false  "First trade date (YYYY-MM-DD)"
// @Param        to        query     string    false  "Last trade date (YYYY-MM-DD)"
// @Success      200       {object}  dto.DailyMetricsResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Router       /api/v1/metrics/daily [get]
func (h *Handler) GetDailyMetrics(c *gin.Context) {
	f, echo, ok := bindFilter(c)
	if !ok {
		return
	}
	items, err := h.svc.DailyMetrics(c.Request.Context(), f)
	if err != nil {
		readFailed(c, "failed to read daily metrics", err)
		return
	}
	c.JSON(http.StatusOK, dto.DailyMetricsResponse{Filters: echo, Count: len(items), Items: items})
}

// GetTopAssets godoc
// @Summary      Top performing assets
// @Description  Assets ranked by total volume over the filtered period
// @Tags         dashboard
// @Produce      json
// @Param        limit     query     int       false  "Maximum rows" default(20)
// @Param        symbol    query     []string  false  "Symbols"  collectionFormat(multi)
// @Param        exchange  query     string    false  "Exchange"
// @Param        from      query     string    false  "First trade date (YYYY-MM-DD)"
// @Param        to        query     string    false  "Last trade date (YYYY-MM-DD)"
// @Success      200       {object}  dto.TopAssetsResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Router       /api/v1/assets/top [get]
func (h *Handler) GetTopAssets(c *gin.Context) {
	f, echo, ok := bindFilter(c)
	if !ok {
		return
	}
	limit, ok := bindLimit(c, defaultTopAssets)
	if !ok {
		return
	}
	items, err := h.svc.TopAssets(c.Request.Context(), f, limit)
	if err != nil {
		readFailed(c, "failed to rank assets", err)
		return
	}
	c.JSON(http.StatusOK, dto.TopAssetsResponse{Filters: echo, Count: len(items), Items: items})
}

// GetUserSummary godoc
// @Summary      User trading summary
// @Description  Users ranked by traded notional, joined to their latest profile, plus the tier and country distribution
// @Tags         dashboard
// @Produce      json
// @Param        limit     query     int       false  "Maximum rows" default(50)
// @Param        join      query     string    false  "Join mode" Enums(inner, left) default(inner)
// @Param        symbol    query     []string  false  "Symbols"  collectionFormat(multi)
// @Param        exchange  query     string    false  "Exchange"
// @Param        from      query     string    false  "First trade date (YYYY-MM-DD)"
// @Param        to        query     string    false  "Last trade date (YYYY-MM-DD)"
// @Success      200       {object}  dto.UserSummaryResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Router       /api/v1/users/summary [get]
func (h *Handler) GetUserSummary(c *gin.Context) {
	f, echo, ok := bindFilter(c)
	if !ok {
		return
	}
	limit, ok := bindLimit(c, defaultTopUsers)
	if !ok {
		return
	}
	mode, err := analytics.ParseJoinMode(c.Query("join"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid join", err)
		return
	}

	users, dist, err := h.svc.UserSummary(c.Request.Context(), f, mode, limit)
	if err != nil {
		readFailed(c, "failed to summarize users", err)
		return
	}
	c.JSON(http.StatusOK, dto.UserSummaryResponse{
		Filters:   echo,
		Join:      string(mode),
		Count:     len(users),
		Items:     users,
		Tiers:     dist.Tiers,
		Countries: dist.Countries,
	})
}

// GetPatterns godoc
// @Summary      Trading patterns
// @Description  Trades and notional grouped by date, by exchange and by date/exchange/symbol
// @Tags         dashboard
// @Produce      json
// @Param        symbol    query     []string  false  "Symbols"  collectionFormat(multi)
// @Param        exchange  query     string    false  "Exchange"
// @Param        from      query     string    false  "First trade date (YYYY-MM-DD)"
// @Param        to        query     string    false  "Last trade date (YYYY-MM-DD)"
// @Success      200       {object}  dto.PatternsResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      503       {object}  dto.ErrorResponse
// @Router       /api/v1/patterns [get]
func (h *Handler) GetPatterns(c *gin.Context) {
	f, echo, ok := bindFilter(c)
	if !ok {
		return
	}
	p, err := h.svc.Patterns(c.Request.Context(), f)
	if err != nil {
		readFailed(c, "failed to compute patterns", err)
		return
	}
	c.JSON(http.StatusOK, dto.PatternsResponse{Filters: echo, Patterns: p})
}

// GetFreshness godoc
// @Summary      Derivation freshness
// @Description  Last refresh, row count, watermarks and last error of every derivation
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dto.FreshnessResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/v1/freshness [get]
func (h *Handler) GetFreshness(c *gin.Context) {
	states, err := h.svc.Freshness(c.Request.Context())
	if err != nil {
		readFailed(c, "failed to read freshness", err)
		return
	}
	c.JSON(http.StatusOK, dto.FreshnessResponse{Derivations: states})
}

func bindFilter(c *gin.Context) (analytics.Filter, dto.Filters, bool) {
	f, err := analytics.ParseFilter(c.QueryArray("symbol"), c.Query("exchange"), c.Query("from"), c.Query("to"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid filter", err)
		return analytics.Filter{}, dto.Filters{}, false
	}
	return f, dto.Filters{
		Symbols:  f.Symbols,
		Exchange: f.Exchange,
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
	}, true
}

func bindLimit(c *gin.Context, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		if err == nil {
			err = fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		middleware.AbortWithError(c, http.StatusBadRequest, "invalid limit", err)
		return 0, false
	}
	return n, true
}

func readFailed(c *gin.Context, msg string, err error) {
	if errors.Is(err, refresh.ErrNotReady) {
		middleware.AbortWithError(c, http.StatusServiceUnavailable, "derivations are not computed yet", err)
		return
	}
	middleware.AbortWithError(c, http.StatusInternalServerError, msg, err)
}
