package bulk

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize caps bulk file uploads at 10 MiB.
const MaxUploadSize = 10 << 20

// Handler provides the bulk upload HTTP endpoint.
type Handler struct {
	processor *Processor
}

// NewHandler creates a bulk handler.
func NewHandler(processor *Processor) *Handler {
	return &Handler{processor: processor}
}

// RegisterRoutes sets up the bulk routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions/bulk", h.UploadBatch)
}

// UploadBatch handles POST /transactions/bulk: a multipart file upload that
// is parsed and processed as one batch.
func (h *Handler) UploadBatch(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Multipart field 'file' is required",
		})
		return
	}
	if fileHeader.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "file_too_large",
			"message": "File exceeds the upload size limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "upload_failed",
			"message": "Failed to open uploaded file",
		})
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "upload_failed",
			"message": "Failed to read uploaded file",
		})
		return
	}

	userID := c.DefaultPostForm("user_id", "bulk_upload")

	result, err := h.processor.ProcessFile(c.Request.Context(), content, fileHeader.Filename, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedFormat):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"error":   "unsupported_format",
				"message": err.Error(),
			})
		case errors.Is(err, ErrNoTransactions):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "no_transactions",
				"message": "No transactions found in the uploaded file",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "processing_failed",
				"message": "Bulk processing failed",
			})
		}
		return
	}

	// format=report returns a rendered document instead of the JSON result.
	if c.Query("format") == "report" {
		report, err := h.processor.RenderReport(c.Request.Context(), result)
		if errors.Is(err, ErrNoRenderer) {
			c.JSON(http.StatusNotImplemented, gin.H{
				"error":   "rendering_unavailable",
				"message": "Report rendering is not configured",
			})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "rendering_failed",
				"message": "Report rendering failed",
			})
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", report)
		return
	}

	c.JSON(http.StatusOK, result)
}
