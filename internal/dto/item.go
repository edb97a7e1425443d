package dto

import (
	"time"

	"github.com/noah-isme/lostfound-api/internal/models"
)

// ContactInfoPayload is the contact pair supplied on item creation.
type ContactInfoPayload struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateItemRequest is the typed draft assembled at the boundary from the
// multipart report form. The photo is processed and stored before the draft
// reaches the service; PhotoURL carries the resulting reference.
type CreateItemRequest struct {
	ItemName          string
	Description       string
	Location          string
	Category          string
	ContactPreference bool
	Contact           *ContactInfoPayload
	PhotoURL          string
}

// ListItemsQuery captures the browse filters. Zero values fall back to the
// documented defaults: open items only, all categories, newest first.
type ListItemsQuery struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	SortBy   string `form:"sortBy"`
	Order    string `form:"order"`
}

// UpdateStatusRequest is the mark-returned payload. A nil Status keeps the
// original behavior of treating the request as "mark returned".
type UpdateStatusRequest struct {
	Status *string `json:"status"`
}

// ItemSummary is a list entry with the disclosure policy already applied:
// contact info is present only when the viewer may see it.
type ItemSummary struct {
	models.Item
	ContactInfo *models.ContactInfo `json:"contact_info,omitempty"`
}

// ItemDetailResponse is the single-item view for a specific viewer. The
// affordance flags tell the presentation layer which actions to offer.
type ItemDetailResponse struct {
	models.Item
	ContactInfo      *models.ContactInfo `json:"contact_info,omitempty"`
	ClaimRequired    bool                `json:"claim_required"`
	CanClaim         bool                `json:"can_claim"`
	CanMarkReturned  bool                `json:"can_mark_returned"`
	MediationAdvised bool                `json:"mediation_advised"`
}

// ClaimResponse reveals a found item's contact info after an explicit claim.
type ClaimResponse struct {
	ItemID      string              `json:"item_id"`
	ContactInfo *models.ContactInfo `json:"contact_info"`
}

// ItemStatsResponse summarises community impact counters.
type ItemStatsResponse struct {
	TotalReported  int `json:"total_reported"`
	TotalRecovered int `json:"total_recovered"`
}

// ExportResponse returns the signed download link for a rendered report.
type ExportResponse struct {
	DownloadURL string    `json:"download_url"`
	Format      string    `json:"format"`
	ExpiresAt   time.Time `json:"expires_at"`
}
