package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lostfound-api/internal/models"
)

const itemColumns = `id, item_name, description, location, photo_url, contact_email, contact_phone, reported_by, category, contact_preference, status, created_at, updated_at`

// ItemRepository provides database access for item reports.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new instance of ItemRepository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item report and fills in generated fields.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	const query = `INSERT INTO items (id, item_name, description, location, photo_url, contact_email, contact_phone, reported_by, category, contact_preference, status, created_at, updated_at) VALUES (:id, :item_name, :description, :location, :photo_url, :contact_email, :contact_phone, :reported_by, :category, :contact_preference, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// FindByID returns an item by identifier.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*models.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE id = $1 LIMIT 1`, itemColumns)
	var item models.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find item by id: %w", err)
	}
	return &item, nil
}

// List returns items matching the filter. Sort columns are whitelisted and
// default to creation time descending (newest first).
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	baseQuery := `FROM items WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"created_at": true,
		"item_name":  true,
		"location":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s", itemColumns, baseQuery, sortBy, sortOrder)

	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// UpdateStatus persists a status change in a single statement so a failed
// write leaves the stored row untouched.
func (r *ItemRepository) UpdateStatus(ctx context.Context, id string, status models.ItemStatus, updatedAt time.Time) error {
	const query = `UPDATE items SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, updatedAt); err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	return nil
}

// CountByStatus returns the total number of reports and how many are
// already returned, for the community stats view.
func (r *ItemRepository) CountByStatus(ctx context.Context) (total int, returned int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'returned') AS returned FROM items`
	row := struct {
		Total    int `db:"total"`
		Returned int `db:"returned"`
	}{}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, fmt.Errorf("count items by status: %w", err)
	}
	return row.Total, row.Returned, nil
}
