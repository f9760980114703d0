package analysis

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/theadiisingh/finpol/internal/regulation"
	"github.com/theadiisingh/finpol/internal/transaction"
)

// Handler provides the transaction analysis and compliance HTTP endpoints.
type Handler struct {
	analyzer  *Analyzer
	store     transaction.Store
	retriever regulation.Searcher
}

// NewHandler creates an analysis handler.
func NewHandler(analyzer *Analyzer, store transaction.Store, retriever regulation.Searcher) *Handler {
	return &Handler{analyzer: analyzer, store: store, retriever: retriever}
}

// RegisterRoutes sets up the v1 analysis and compliance routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions/analyze", h.AnalyzeTransaction)
	r.POST("/transactions", h.CreateTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.GET("/compliance/regulations/search", h.SearchRegulations)
	r.POST("/compliance/report/:id", h.ComplianceReport)
}

// AnalyzeTransaction handles POST /transactions/analyze.
func (h *Handler) AnalyzeTransaction(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	resp, err := h.analyzer.Analyze(c.Request.Context(), &tx)
	if err != nil {
		var verr *transaction.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verr.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis_failed",
			"message": "Transaction analysis failed",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateTransaction handles POST /transactions: assess risk and store the
// annotated record.
func (h *Handler) CreateTransaction(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	rec, err := h.analyzer.CreateRecord(c.Request.Context(), &tx, h.store)
	if err != nil {
		var verr *transaction.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": verr.Error(),
			})
		case errors.Is(err, transaction.ErrExists):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "already_exists",
				"message": "Transaction already exists",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "creation_failed",
				"message": "Transaction creation failed",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// ListTransactions handles GET /transactions.
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := h.store.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": records,
		"count":        len(records),
	})
}

// GetTransaction handles GET /transactions/:id.
func (h *Handler) GetTransaction(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "get_failed",
			"message": "Failed to load transaction",
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// SearchRegulations handles GET /compliance/regulations/search.
func (h *Handler) SearchRegulations(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Query parameter q is required",
		})
		return
	}
	topK := 0
	if k := c.Query("top_k"); k != "" {
		if parsed, err := strconv.Atoi(k); err == nil && parsed > 0 && parsed <= 20 {
			topK = parsed
		}
	}

	docs, err := h.retriever.SearchRegulations(c.Request.Context(), query, topK)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "search_failed",
			"message": "Regulation search failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"regulations": docs,
		"count":       len(docs),
	})
}

// ComplianceReport handles POST /compliance/report/:id: re-analyze a stored
// transaction and return the full response including the explanation.
func (h *Handler) ComplianceReport(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "get_failed",
			"message": "Failed to load transaction",
		})
		return
	}

	tx := rec.Transaction
	resp, err := h.analyzer.Analyze(c.Request.Context(), &tx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "report_failed",
			"message": "Compliance report generation failed",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
