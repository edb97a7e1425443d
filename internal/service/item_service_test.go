package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/dto"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

type mockItemRepo struct {
	items       map[string]*models.Item
	lastFilter  models.ItemFilter
	listCalls   int
	total       int
	returned    int
	updateErr   error
	updatedID   string
	updatedTo   models.ItemStatus
	updateCalls int
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[string]*models.Item)}
}

func (m *mockItemRepo) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = "generated"
	}
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockItemRepo) FindByID(ctx context.Context, id string) (*models.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (m *mockItemRepo) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	m.lastFilter = filter
	m.listCalls++
	out := make([]models.Item, 0, len(m.items))
	for _, item := range m.items {
		if filter.Category != "" && string(item.Category) != filter.Category {
			continue
		}
		if filter.Status != "" && string(item.Status) != filter.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockItemRepo) UpdateStatus(ctx context.Context, id string, status models.ItemStatus, updatedAt time.Time) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedID = id
	m.updatedTo = status
	if item, ok := m.items[id]; ok {
		item.Status = status
		item.UpdatedAt = updatedAt
	}
	return nil
}

func (m *mockItemRepo) CountByStatus(ctx context.Context) (int, int, error) {
	return m.total, m.returned, nil
}

type mockCache struct {
	store       map[string][]byte
	gets        int
	sets        int
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	m.store[key] = nil
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	return nil
}

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type mockExportStorage struct {
	saved map[string][]byte
}

func (m *mockExportStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockExportStorage) Path(filename string) string {
	return "/exports/" + filename
}

type mockSigner struct{}

func (m *mockSigner) Generate(exportID, relPath string) (string, time.Time, error) {
	return "signed-" + relPath, time.Now().Add(30 * time.Minute), nil
}

func (m *mockSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "id", token[len("signed-"):], time.Now(), nil
}

func newItemService(repo *mockItemRepo) (*ItemService, *mockCache, *mockAudit) {
	cache := newMockCache()
	audit := &mockAudit{}
	svc := NewItemService(repo, cache, audit, &mockExportStorage{}, &mockSigner{}, zap.NewNop(), ItemServiceConfig{
		ListCacheTTL:  time.Minute,
		StatsCacheTTL: time.Minute,
	})
	return svc, cache, audit
}

func validCreateRequest() dto.CreateItemRequest {
	return dto.CreateItemRequest{
		ItemName:    "Blue Backpack",
		Description: "Left near the library entrance",
		Location:    "Central Library",
		Category:    "lost",
		PhotoURL:    "/uploads/photo.jpg",
	}
}

func TestItemServiceCreate(t *testing.T) {
	repo := newMockItemRepo()
	svc, cache, audit := newItemService(repo)

	req := validCreateRequest()
	req.Contact = &dto.ContactInfoPayload{Email: "student@campus.edu"}

	item, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, item.Status)
	assert.Equal(t, "u1", item.ReportedBy)
	require.NotNil(t, item.ContactEmail)
	assert.Equal(t, "student@campus.edu", *item.ContactEmail)
	assert.NotEmpty(t, audit.logs)
	assert.NotEmpty(t, cache.invalidated)
}

func TestItemServiceCreateForcesPreferenceOffForLost(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	req := validCreateRequest()
	req.Category = "lost"
	req.ContactPreference = true

	item, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.False(t, item.ContactPreference)
}

func TestItemServiceCreateKeepsPreferenceForFound(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	req := validCreateRequest()
	req.Category = "found"
	req.ContactPreference = true

	item, err := svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.True(t, item.ContactPreference)
}

func TestItemServiceCreateReportsFirstFailingField(t *testing.T) {
	svc, _, _ := newItemService(newMockItemRepo())

	cases := []struct {
		mutate  func(*dto.CreateItemRequest)
		message string
	}{
		{func(r *dto.CreateItemRequest) { r.ItemName = " " }, "item name is required"},
		{func(r *dto.CreateItemRequest) { r.Description = "" }, "description is required"},
		{func(r *dto.CreateItemRequest) { r.Location = "" }, "location is required"},
		{func(r *dto.CreateItemRequest) { r.Category = "" }, "category is required"},
		{func(r *dto.CreateItemRequest) { r.Category = "stolen" }, "category must be lost or found"},
		{func(r *dto.CreateItemRequest) { r.PhotoURL = " " }, "a photo is required"},
	}

	for _, tc := range cases {
		req := validCreateRequest()
		tc.mutate(&req)
		_, err := svc.Create(context.Background(), "u1", req)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		assert.Equal(t, tc.message, appErr.Message)
	}
}

func TestItemServiceListDefaultsToOpen(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	_, err := svc.List(context.Background(), "", dto.ListItemsQuery{})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOpen), repo.lastFilter.Status)
	assert.Empty(t, repo.lastFilter.Category)
}

func TestItemServiceListAllOptsOutOfStatusDefault(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	_, err := svc.List(context.Background(), "", dto.ListItemsQuery{Status: "all", Category: "found"})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.Status)
	assert.Equal(t, "found", repo.lastFilter.Category)
}

func TestItemServiceListRejectsUnknownFilters(t *testing.T) {
	svc, _, _ := newItemService(newMockItemRepo())

	_, err := svc.List(context.Background(), "", dto.ListItemsQuery{Category: "stolen"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.List(context.Background(), "", dto.ListItemsQuery{Status: "pending"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItemServiceListRedactsContactPerViewer(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	email := "finder@campus.edu"
	repo.items["i1"] = &models.Item{
		ID:                "i1",
		ItemName:          "Calculator",
		ReportedBy:        "owner",
		Category:          models.CategoryFound,
		ContactPreference: false,
		Status:            models.StatusOpen,
		ContactEmail:      &email,
	}

	// Found item without the opt-in: contact hidden from strangers.
	items, err := svc.List(context.Background(), "stranger", dto.ListItemsQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ContactInfo)

	// The reporter still sees their own contact.
	items, err = svc.List(context.Background(), "owner", dto.ListItemsQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ContactInfo)
	assert.Equal(t, email, items[0].ContactInfo.Email)
}

func TestItemServiceGetDetailFlags(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	email := "finder@campus.edu"
	repo.items["i1"] = &models.Item{
		ID:                "i1",
		ReportedBy:        "owner",
		Category:          models.CategoryFound,
		ContactPreference: true,
		Status:            models.StatusOpen,
		ContactEmail:      &email,
	}

	detail, err := svc.Get(context.Background(), "stranger", "i1")
	require.NoError(t, err)
	assert.Nil(t, detail.ContactInfo)
	assert.True(t, detail.ClaimRequired)
	assert.True(t, detail.CanClaim)
	assert.False(t, detail.CanMarkReturned)

	ownerView, err := svc.Get(context.Background(), "owner", "i1")
	require.NoError(t, err)
	require.NotNil(t, ownerView.ContactInfo)
	assert.True(t, ownerView.CanMarkReturned)
}

func TestItemServiceGetNotFound(t *testing.T) {
	svc, _, _ := newItemService(newMockItemRepo())

	_, err := svc.Get(context.Background(), "viewer", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestItemServiceClaimRevealsContact(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	email := "finder@campus.edu"
	repo.items["i1"] = &models.Item{
		ID:                "i1",
		ReportedBy:        "owner",
		Category:          models.CategoryFound,
		ContactPreference: true,
		Status:            models.StatusOpen,
		ContactEmail:      &email,
	}

	res, err := svc.Claim(context.Background(), "stranger", "i1")
	require.NoError(t, err)
	require.NotNil(t, res.ContactInfo)
	assert.Equal(t, email, res.ContactInfo.Email)

	// Claiming changes nothing about the item itself.
	assert.Equal(t, models.StatusOpen, repo.items["i1"].Status)
}

func TestItemServiceClaimRejectsOwnerAndNonClaimable(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	repo.items["found-no-optin"] = &models.Item{ID: "found-no-optin", ReportedBy: "owner", Category: models.CategoryFound, Status: models.StatusOpen}
	repo.items["lost-open"] = &models.Item{ID: "lost-open", ReportedBy: "owner", Category: models.CategoryLost, Status: models.StatusOpen}

	_, err := svc.Claim(context.Background(), "owner", "found-no-optin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Claim(context.Background(), "stranger", "found-no-optin")
	require.Error(t, err)

	_, err = svc.Claim(context.Background(), "stranger", "lost-open")
	require.Error(t, err)
}

func TestItemServiceMarkReturned(t *testing.T) {
	repo := newMockItemRepo()
	svc, cache, audit := newItemService(repo)

	repo.items["i1"] = &models.Item{ID: "i1", ReportedBy: "owner", Category: models.CategoryLost, Status: models.StatusOpen}

	item, err := svc.MarkReturned(context.Background(), "owner", "i1", dto.UpdateStatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, item.Status)
	assert.Equal(t, "i1", repo.updatedID)
	assert.NotEmpty(t, audit.logs)
	assert.NotEmpty(t, cache.invalidated)
}

func TestItemServiceMarkReturnedIsIdempotent(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	repo.items["i1"] = &models.Item{ID: "i1", ReportedBy: "owner", Category: models.CategoryLost, Status: models.StatusReturned}

	item, err := svc.MarkReturned(context.Background(), "owner", "i1", dto.UpdateStatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, item.Status)
	assert.Zero(t, repo.updateCalls)
}

func TestItemServiceMarkReturnedErrors(t *testing.T) {
	repo := newMockItemRepo()
	svc, _, _ := newItemService(repo)

	repo.items["i1"] = &models.Item{ID: "i1", ReportedBy: "owner", Category: models.CategoryLost, Status: models.StatusOpen}

	_, err := svc.MarkReturned(context.Background(), "owner", "missing", dto.UpdateStatusRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.MarkReturned(context.Background(), "stranger", "i1", dto.UpdateStatusRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	bogus := "lost"
	_, err = svc.MarkReturned(context.Background(), "owner", "i1", dto.UpdateStatusRequest{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// The row is untouched after the failed attempts.
	assert.Equal(t, models.StatusOpen, repo.items["i1"].Status)
}

func TestItemServiceStats(t *testing.T) {
	repo := newMockItemRepo()
	repo.total = 10
	repo.returned = 4
	svc, cache, _ := newItemService(repo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalReported)
	assert.Equal(t, 4, stats.TotalRecovered)
	assert.Positive(t, cache.sets)
}

func TestItemServiceExport(t *testing.T) {
	repo := newMockItemRepo()
	repo.items["i1"] = &models.Item{ID: "i1", ItemName: "Calculator", Category: models.CategoryLost, Status: models.StatusOpen}
	svc, _, _ := newItemService(repo)

	res, err := svc.Export(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.Contains(t, res.DownloadURL, "/api/v1/exports/")
	assert.False(t, res.ExpiresAt.IsZero())

	// The export runs over every item, not just open ones.
	assert.Empty(t, repo.lastFilter.Status)
}

func TestItemServiceExportRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newItemService(newMockItemRepo())

	_, err := svc.Export(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestItemServiceResolveExport(t *testing.T) {
	svc, _, _ := newItemService(newMockItemRepo())

	download, err := svc.ResolveExport("signed-items-abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/exports/items-abc.pdf", download.Path)
	assert.Equal(t, "application/pdf", download.ContentType)
}
