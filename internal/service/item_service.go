package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/export"
)

const (
	itemCachePrefix = "items:"
	statsCacheKey   = "items:stats"
)

type itemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error)
	UpdateStatus(ctx context.Context, id string, status models.ItemStatus, updatedAt time.Time) error
	CountByStatus(ctx context.Context) (int, int, error)
}

type itemCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type exportSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

type itemMetrics interface {
	RecordCacheOperation(hit bool)
	RecordItemReported(category string)
	RecordItemReturned()
}

// ItemServiceConfig tunes caching and export link construction.
type ItemServiceConfig struct {
	ListCacheTTL     time.Duration
	StatsCacheTTL    time.Duration
	ExportsBasePath  string
	ExportsTitleText string
}

// ItemService implements the lost-and-found report use cases: creation,
// browsing with per-viewer contact redaction, claim reveals, the
// mark-returned transition, community stats and report exports.
type ItemService struct {
	repo    itemRepository
	cache   itemCache
	audit   auditRecorder
	storage exportStorage
	signer  exportSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	metrics itemMetrics
	logger  *zap.Logger
	config  ItemServiceConfig
}

// WithMetrics attaches an instrumentation sink. Optional; a nil service
// keeps everything working without counters.
func (s *ItemService) WithMetrics(m itemMetrics) *ItemService {
	s.metrics = m
	return s
}

// NewItemService constructs an ItemService.
func NewItemService(repo itemRepository, cache itemCache, audit auditRecorder, storage exportStorage, signer exportSigner, logger *zap.Logger, config ItemServiceConfig) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ExportsBasePath == "" {
		config.ExportsBasePath = "/api/v1/exports"
	}
	if config.ExportsTitleText == "" {
		config.ExportsTitleText = "Lost and Found Items"
	}
	return &ItemService{
		repo:    repo,
		cache:   cache,
		audit:   audit,
		storage: storage,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		config:  config,
	}
}

// Create validates and stores a new item report. Reports always start open,
// and the contact-sharing opt-in only means anything on found items; on lost
// reports it is forced off so the policy never consults a stray flag.
func (s *ItemService) Create(ctx context.Context, userID string, req dto.CreateItemRequest) (*models.Item, error) {
	if err := validateCreateItem(req); err != nil {
		return nil, err
	}

	item := &models.Item{
		ItemName:          strings.TrimSpace(req.ItemName),
		Description:       strings.TrimSpace(req.Description),
		Location:          strings.TrimSpace(req.Location),
		PhotoURL:          req.PhotoURL,
		ReportedBy:        userID,
		Category:          models.ItemCategory(req.Category),
		ContactPreference: req.ContactPreference && req.Category == string(models.CategoryFound),
		Status:            models.StatusOpen,
	}

	if req.Contact != nil {
		if email := strings.TrimSpace(req.Contact.Email); email != "" {
			item.ContactEmail = &email
		}
		if phone := strings.TrimSpace(req.Contact.Phone); phone != "" {
			item.ContactPhone = &phone
		}
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}

	s.recordAudit(ctx, userID, models.AuditActionItemCreate, item.ID, fmt.Sprintf(`{"category":%q}`, item.Category))
	s.invalidateCaches(ctx)
	if s.metrics != nil {
		s.metrics.RecordItemReported(string(item.Category))
	}

	return item, nil
}

// List returns items visible to the viewer with contact details already
// redacted per the disclosure policy. Unless the caller opts out with
// status=all, only open items are returned.
func (s *ItemService) List(ctx context.Context, viewerID string, query dto.ListItemsQuery) ([]dto.ItemSummary, error) {
	filter, err := resolveListFilter(query)
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.ItemSummary, 0, len(items))
	for i := range items {
		item := items[i]
		summary := dto.ItemSummary{Item: item}
		if EvaluateDisclosure(&item, viewerID, false).ShowContact {
			summary.ContactInfo = item.Contact()
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// Get returns the detail view of an item for a specific viewer, including
// the affordance flags the client needs to render claim and mark-returned
// actions.
func (s *ItemService) Get(ctx context.Context, viewerID, id string) (*dto.ItemDetailResponse, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}

	d := EvaluateDisclosure(item, viewerID, false)
	detail := &dto.ItemDetailResponse{
		Item:             *item,
		ClaimRequired:    d.ClaimRequired,
		CanClaim:         d.CanClaim,
		CanMarkReturned:  d.CanMarkReturned,
		MediationAdvised: d.MediationAdvised,
	}
	if d.ShowContact {
		detail.ContactInfo = item.Contact()
	}

	return detail, nil
}

// Claim reveals the contact details on a claim-gated found item. The reveal
// is scoped to this response; nothing about the item changes and nothing is
// remembered about who claimed.
func (s *ItemService) Claim(ctx context.Context, viewerID, id string) (*dto.ClaimResponse, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if viewerID == item.ReportedBy {
		return nil, appErrors.Clone(appErrors.ErrValidation, "you reported this item; its contact details are already yours")
	}

	d := EvaluateDisclosure(item, viewerID, true)
	if !d.ClaimRequired || !d.ShowContact {
		return nil, appErrors.Clone(appErrors.ErrValidation, "this item does not support claim-based contact reveal")
	}

	return &dto.ClaimResponse{ItemID: item.ID, ContactInfo: item.Contact()}, nil
}

// MarkReturned closes an open report. Only the reporter may do it, an absent
// status in the request means "returned", and repeating the call on an
// already returned item succeeds without touching the row.
func (s *ItemService) MarkReturned(ctx context.Context, viewerID, id string, req dto.UpdateStatusRequest) (*models.Item, error) {
	item, err := s.findItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if item.ReportedBy != viewerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the reporter can update this item")
	}

	if req.Status != nil && *req.Status != string(models.StatusReturned) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status can only be changed to returned")
	}

	if item.Status == models.StatusReturned {
		return item, nil
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, item.ID, models.StatusReturned, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item status")
	}
	item.Status = models.StatusReturned
	item.UpdatedAt = now

	s.recordAudit(ctx, viewerID, models.AuditActionItemStatusChange, item.ID, `{"status":"returned"}`)
	s.invalidateCaches(ctx)
	if s.metrics != nil {
		s.metrics.RecordItemReturned()
	}

	return item, nil
}

// Stats reports how many items were ever reported and how many came back.
func (s *ItemService) Stats(ctx context.Context) (*dto.ItemStatsResponse, error) {
	if s.cache != nil {
		var cached dto.ItemStatsResponse
		if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	total, returned, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count items")
	}

	stats := &dto.ItemStatsResponse{TotalReported: total, TotalRecovered: returned}
	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.config.StatsCacheTTL); err != nil {
			s.logger.Warn("failed to cache item stats", zap.Error(err))
		}
	}

	return stats, nil
}

// ExportDownload describes a resolved export file ready for streaming.
type ExportDownload struct {
	Path        string
	Filename    string
	ContentType string
}

// Export renders every report into a downloadable file and returns a signed,
// short-lived URL for it. Contact details are never part of an export.
func (s *ItemService) Export(ctx context.Context, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	items, err := s.repo.List(ctx, models.ItemFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load items for export")
	}

	dataset := buildItemDataset(items)

	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	case "pdf":
		payload, err = s.pdf.Render(dataset, s.config.ExportsTitleText)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("items-%s.%s", exportID, format)
	if _, err := s.storage.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	return &dto.ExportResponse{
		DownloadURL: path.Join(s.config.ExportsBasePath, token),
		Format:      format,
		ExpiresAt:   expiresAt,
	}, nil
}

// ResolveExport validates a signed download token and locates the file.
func (s *ItemService) ResolveExport(token string) (*ExportDownload, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link is invalid or expired")
	}

	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}

	return &ExportDownload{
		Path:        s.storage.Path(relPath),
		Filename:    relPath,
		ContentType: contentType,
	}, nil
}

func (s *ItemService) findItem(ctx context.Context, id string) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	return item, nil
}

func (s *ItemService) loadItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	key := listCacheKey(filter)
	if s.cache != nil {
		var cached []models.Item
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, items, s.config.ListCacheTTL); err != nil {
			s.logger.Warn("failed to cache item list", zap.Error(err))
		}
	}

	return items, nil
}

func (s *ItemService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, itemCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate item caches", zap.Error(err))
	}
}

func (s *ItemService) recordAudit(ctx context.Context, userID, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "items",
		ResourceID: &resourceID,
		NewValues:  []byte(values),
	}); err != nil {
		s.logger.Warn("failed to record item audit log", zap.Error(err))
	}
}

// validateCreateItem checks the report draft field by field and reports the
// first failure, so the client gets one actionable message at a time.
func validateCreateItem(req dto.CreateItemRequest) error {
	if strings.TrimSpace(req.ItemName) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "item name is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "description is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "location is required")
	}
	switch req.Category {
	case string(models.CategoryLost), string(models.CategoryFound):
	case "":
		return appErrors.Clone(appErrors.ErrValidation, "category is required")
	default:
		return appErrors.Clone(appErrors.ErrValidation, "category must be lost or found")
	}
	if strings.TrimSpace(req.PhotoURL) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a photo is required")
	}
	if req.Contact != nil {
		if email := strings.TrimSpace(req.Contact.Email); email != "" && !strings.Contains(email, "@") {
			return appErrors.Clone(appErrors.ErrValidation, "contact email is invalid")
		}
	}
	return nil
}

// resolveListFilter applies the browse defaults: all categories, open items
// only, newest first. The literal "all" opts out of the status default.
func resolveListFilter(query dto.ListItemsQuery) (models.ItemFilter, error) {
	filter := models.ItemFilter{
		SortBy:    query.SortBy,
		SortOrder: query.Order,
	}

	switch query.Category {
	case "", "all":
	case string(models.CategoryLost), string(models.CategoryFound):
		filter.Category = query.Category
	default:
		return models.ItemFilter{}, appErrors.Clone(appErrors.ErrValidation, "category must be lost, found or all")
	}

	switch query.Status {
	case "":
		filter.Status = string(models.StatusOpen)
	case "all":
	case string(models.StatusOpen), string(models.StatusReturned):
		filter.Status = query.Status
	default:
		return models.ItemFilter{}, appErrors.Clone(appErrors.ErrValidation, "status must be open, returned or all")
	}

	return filter, nil
}

func listCacheKey(filter models.ItemFilter) string {
	return fmt.Sprintf("%slist:category=%s:status=%s:sort=%s:%s", itemCachePrefix, filter.Category, filter.Status, filter.SortBy, filter.SortOrder)
}

func buildItemDataset(items []models.Item) export.Dataset {
	headers := []string{"Item", "Category", "Status", "Location", "Reported At"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"Item":        item.ItemName,
			"Category":    string(item.Category),
			"Status":      string(item.Status),
			"Location":    item.Location,
			"Reported At": item.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
