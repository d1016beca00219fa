package prices

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	DefaultSearchQuery = "아이폰"
	DefaultPriceQuery  = "아이폰 15"

	errSearchMsg  = "search API request failed"
	errHistoryMsg = "failed to load price history"
	errCleanupMsg = "failed to clean up old price history"
)

// RequestIDKey is the gin context key the request logger stores ids under.
const RequestIDKey = "request_id"

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log.With("component", "http")}
}

// Register mounts the HTML pages and the JSON API on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Index)
	r.GET("/search", h.Search)
	r.GET("/price", h.Price)
	r.GET("/history", h.History)
	r.GET("/cleanup", h.Cleanup)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		api.GET("/search", h.SearchJSON)
		api.GET("/price", h.PriceJSON)
		api.GET("/history", h.HistoryJSON)
	}
}

// queryParam returns ?q= verbatim, or def when it is missing or empty.
// The value is the history key, so whitespace is kept.
func queryParam(c *gin.Context, def string) string {
	if q := c.Query("q"); q != "" {
		return q
	}
	return def
}

func (h *Handler) fail(c *gin.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "path", c.FullPath(), RequestIDKey, c.GetString(RequestIDKey))
	h.log.Error(msg, attrs...)
	c.String(http.StatusInternalServerError, msg)
}

func (h *Handler) failJSON(c *gin.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err, "path", c.FullPath(), RequestIDKey, c.GetString(RequestIDKey))
	h.log.Error(msg, attrs...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{"title": "Price Tracker"})
}

func (h *Handler) Search(c *gin.Context) {
	q := queryParam(c, DefaultSearchQuery)
	items, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, errSearchMsg, err, "query", q)
		return
	}
	c.HTML(http.StatusOK, "search.tmpl", gin.H{
		"title":   "Search",
		"query":   q,
		"results": items,
	})
}

func (h *Handler) Price(c *gin.Context) {
	q := queryParam(c, DefaultPriceQuery)
	res, err := h.svc.Ingest(c.Request.Context(), q)
	if err != nil {
		h.fail(c, errSearchMsg, err, "query", q)
		return
	}
	c.HTML(http.StatusOK, "price.tmpl", gin.H{
		"title":    "Price Tracking",
		"query":    q,
		"results":  res.Items,
		"inserted": len(res.Inserted),
		"rejected": res.Rejected,
	})
}

func (h *Handler) History(c *gin.Context) {
	hist, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.fail(c, errHistoryMsg, err)
		return
	}
	c.HTML(http.StatusOK, "history.tmpl", gin.H{
		"title":   "Price History",
		"history": hist,
	})
}

func (h *Handler) Cleanup(c *gin.Context) {
	n, err := h.svc.Cleanup(c.Request.Context())
	if err != nil {
		h.fail(c, errCleanupMsg, err)
		return
	}
	days := int(h.svc.Retention().Hours() / 24)
	c.String(http.StatusOK, "cleanup complete: removed %d records older than %d days", n, days)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) SearchJSON(c *gin.Context) {
	q := queryParam(c, DefaultSearchQuery)
	items, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		h.failJSON(c, errSearchMsg, err, "query", q)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "items": items})
}

func (h *Handler) PriceJSON(c *gin.Context) {
	q := queryParam(c, DefaultPriceQuery)
	res, err := h.svc.Ingest(c.Request.Context(), q)
	if err != nil {
		h.failJSON(c, errSearchMsg, err, "query", q)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":    q,
		"items":    res.Items,
		"inserted": len(res.Inserted),
		"rejected": res.Rejected,
	})
}

func (h *Handler) HistoryJSON(c *gin.Context) {
	hist, err := h.svc.History(c.Request.Context())
	if err != nil {
		h.failJSON(c, errHistoryMsg, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}
