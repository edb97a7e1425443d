package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/models"
)

func itemRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "item_name", "description", "location", "photo_url", "contact_email", "contact_phone", "reported_by", "category", "contact_preference", "status", "created_at", "updated_at"}).
		AddRow("i1", "Blue Backpack", "Left near the library", "Central Library", "/uploads/i1.jpg", nil, nil, "u1", string(models.CategoryLost), false, string(models.StatusOpen), now, now)
}

func TestCreateItem(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectExec("INSERT INTO items").WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.Item{
		ItemName:    "Blue Backpack",
		Description: "Left near the library",
		Location:    "Central Library",
		ReportedBy:  "u1",
		Category:    models.CategoryLost,
		Status:      models.StatusOpen,
	}
	err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindItemByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+itemColumns+" FROM items WHERE id = $1 LIMIT 1")).
		WithArgs("i1").
		WillReturnRows(itemRows(time.Now()))

	item, err := repo.FindByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "Blue Backpack", item.ItemName)
	assert.Equal(t, models.CategoryLost, item.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindItemByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+itemColumns+" FROM items WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsDefaultsToNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+itemColumns+" FROM items WHERE 1=1 ORDER BY created_at DESC")).
		WillReturnRows(itemRows(time.Now()))

	items, err := repo.List(context.Background(), models.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+itemColumns+" FROM items WHERE 1=1 AND category = $1 AND status = $2 ORDER BY item_name ASC")).
		WithArgs(string(models.CategoryFound), string(models.StatusOpen)).
		WillReturnRows(itemRows(time.Now()))

	items, err := repo.List(context.Background(), models.ItemFilter{
		Category:  string(models.CategoryFound),
		Status:    string(models.StatusOpen),
		SortBy:    "item_name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsRejectsUnknownSortColumn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+itemColumns+" FROM items WHERE 1=1 ORDER BY created_at DESC")).
		WillReturnRows(itemRows(time.Now()))

	_, err := repo.List(context.Background(), models.ItemFilter{SortBy: "password_hash; DROP TABLE items"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET status = $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "i1", models.StatusReturned, time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	rows := sqlmock.NewRows([]string{"total", "returned"}).AddRow(12, 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'returned') AS returned FROM items")).
		WillReturnRows(rows)

	total, returned, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Equal(t, 5, returned)
	assert.NoError(t, mock.ExpectationsWereMet())
}
