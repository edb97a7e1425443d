package models

import "time"

// ItemCategory distinguishes lost reports from found reports.
type ItemCategory string

const (
	CategoryLost  ItemCategory = "lost"
	CategoryFound ItemCategory = "found"
)

// ItemStatus tracks whether a report is still open. The only legal
// transition is open to returned; there is no way back.
type ItemStatus string

const (
	StatusOpen     ItemStatus = "open"
	StatusReturned ItemStatus = "returned"
)

// ContactInfo is the optional contact pair attached to an item at creation.
type ContactInfo struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Item represents a lost or found item report. Everything except Status is
// write-once at creation; Status flips to returned at most once, and only
// by the reporter.
type Item struct {
	ID                string       `db:"id" json:"id"`
	ItemName          string       `db:"item_name" json:"item_name"`
	Description       string       `db:"description" json:"description"`
	Location          string       `db:"location" json:"location"`
	PhotoURL          string       `db:"photo_url" json:"photo_url"`
	ContactEmail      *string      `db:"contact_email" json:"-"`
	ContactPhone      *string      `db:"contact_phone" json:"-"`
	ReportedBy        string       `db:"reported_by" json:"reported_by"`
	Category          ItemCategory `db:"category" json:"category"`
	ContactPreference bool         `db:"contact_preference" json:"contact_preference"`
	Status            ItemStatus   `db:"status" json:"status"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// Contact assembles the stored contact columns into a ContactInfo, or nil
// when the reporter attached none. Whether it is disclosed to a viewer is
// decided by the disclosure policy, never here.
func (i *Item) Contact() *ContactInfo {
	info := ContactInfo{}
	if i.ContactEmail != nil {
		info.Email = *i.ContactEmail
	}
	if i.ContactPhone != nil {
		info.Phone = *i.ContactPhone
	}
	if info.Email == "" && info.Phone == "" {
		return nil
	}
	return &info
}

// ItemFilter captures listing criteria. Empty Category or Status means no
// filter on that column.
type ItemFilter struct {
	Category  string
	Status    string
	SortBy    string
	SortOrder string
}
