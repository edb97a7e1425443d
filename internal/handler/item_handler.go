package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	"github.com/noah-isme/lostfound-api/internal/service"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/response"
)

// ItemService is the item use-case surface the handler depends on.
type ItemService interface {
	Create(ctx context.Context, userID string, req dto.CreateItemRequest) (*models.Item, error)
	List(ctx context.Context, viewerID string, query dto.ListItemsQuery) ([]dto.ItemSummary, error)
	Get(ctx context.Context, viewerID, id string) (*dto.ItemDetailResponse, error)
	Claim(ctx context.Context, viewerID, id string) (*dto.ClaimResponse, error)
	MarkReturned(ctx context.Context, viewerID, id string, req dto.UpdateStatusRequest) (*models.Item, error)
	Stats(ctx context.Context) (*dto.ItemStatsResponse, error)
	Export(ctx context.Context, format string) (*dto.ExportResponse, error)
	ResolveExport(token string) (*service.ExportDownload, error)
}

// PhotoService stores uploaded item photos.
type PhotoService interface {
	Store(r io.Reader) (string, error)
	Remove(photoURL string)
}

// ItemHandler wires HTTP endpoints to the item service.
type ItemHandler struct {
	items         ItemService
	photos        PhotoService
	maxUploadSize int64
}

// NewItemHandler creates a new handler.
func NewItemHandler(items ItemService, photos PhotoService, maxUploadSize int64) *ItemHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 5 * 1024 * 1024
	}
	return &ItemHandler{items: items, photos: photos, maxUploadSize: maxUploadSize}
}

// Create godoc
// @Summary Report a lost or found item
// @Description Create an item report from a multipart form with a required photo
// @Tags Items
// @Accept multipart/form-data
// @Produce json
// @Param item_name formData string true "Item name"
// @Param description formData string true "Description"
// @Param location formData string true "Where it was lost or found"
// @Param category formData string true "lost or found"
// @Param contact_preference formData boolean false "Share contact after a claim (found items only)"
// @Param contact_email formData string false "Contact email"
// @Param contact_phone formData string false "Contact phone"
// @Param photo formData file true "Item photo (JPEG or PNG)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	file, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a photo is required"))
		return
	}
	if file.Size > h.maxUploadSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo exceeds the maximum upload size"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read photo"))
		return
	}
	defer src.Close() //nolint:errcheck

	photoURL, err := h.photos.Store(src)
	if err != nil {
		response.Error(c, err)
		return
	}

	contactPreference, _ := strconv.ParseBool(c.PostForm("contact_preference"))
	req := dto.CreateItemRequest{
		ItemName:          c.PostForm("item_name"),
		Description:       c.PostForm("description"),
		Location:          c.PostForm("location"),
		Category:          c.PostForm("category"),
		ContactPreference: contactPreference,
		PhotoURL:          photoURL,
	}
	if email, phone := c.PostForm("contact_email"), c.PostForm("contact_phone"); email != "" || phone != "" {
		req.Contact = &dto.ContactInfoPayload{Email: email, Phone: phone}
	}

	item, err := h.items.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		h.photos.Remove(photoURL)
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

// List godoc
// @Summary Browse item reports
// @Description List items with optional category and status filters; defaults to open items, newest first
// @Tags Items
// @Produce json
// @Param category query string false "lost, found or all"
// @Param status query string false "open, returned or all"
// @Param sortBy query string false "created_at, item_name or location"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.ListItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid list query"))
		return
	}

	items, err := h.items.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Item detail
// @Description Return one item with viewer-specific contact disclosure and action flags
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.items.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Claim godoc
// @Summary Claim a found item
// @Description Reveal the finder's contact details on a claim-gated found item
// @Tags Items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id}/claim [post]
func (h *ItemHandler) Claim(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.items.Claim(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateStatus godoc
// @Summary Mark an item as returned
// @Description Close an open report; only the reporter may do this and the call is idempotent
// @Tags Items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateStatusRequest false "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /items/{id}/status [patch]
func (h *ItemHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateStatusRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
			return
		}
	}

	item, err := h.items.MarkReturned(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Stats godoc
// @Summary Community stats
// @Description Return how many items were reported and how many made it back
// @Tags Items
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /items/stats [get]
func (h *ItemHandler) Stats(c *gin.Context) {
	stats, err := h.items.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export item reports
// @Description Render all reports to CSV or PDF and return a signed download link
// @Tags Items
// @Produce json
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /items/export [post]
func (h *ItemHandler) Export(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.items.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// DownloadExport godoc
// @Summary Download a rendered export
// @Description Stream an export file referenced by a signed token
// @Tags Items
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ItemHandler) DownloadExport(c *gin.Context) {
	download, err := h.items.ResolveExport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+download.Filename)
	c.Header("Content-Type", download.ContentType)
	c.File(download.Path)
}
