package service

import "github.com/noah-isme/lostfound-api/internal/models"

// Disclosure is the outcome of the contact-disclosure policy for one viewer
// looking at one item. ShowContact gates whether the stored contact pair may
// be rendered; the remaining flags drive the affordances offered alongside.
type Disclosure struct {
	ShowContact      bool
	ClaimRequired    bool
	CanClaim         bool
	CanMarkReturned  bool
	MediationAdvised bool
}

// EvaluateDisclosure decides what a viewer may see and do on an item.
//
// The reporter always sees their own contact details and may close an open
// report. For everyone else: returned items disclose nothing, open lost
// items disclose freely (the finder needs a way to reach the owner), and
// open found items disclose only when the reporter opted in, and then only
// after the viewer explicitly claims the item. A found report without the
// opt-in routes the viewer to mediation instead.
//
// Unknown category or status values disclose nothing. The policy fails
// closed rather than guessing.
func EvaluateDisclosure(item *models.Item, viewerID string, claimed bool) Disclosure {
	if item == nil {
		return Disclosure{}
	}

	if viewerID != "" && viewerID == item.ReportedBy {
		return Disclosure{
			ShowContact:     true,
			CanMarkReturned: item.Status == models.StatusOpen,
		}
	}

	if item.Status != models.StatusOpen {
		return Disclosure{}
	}

	switch item.Category {
	case models.CategoryLost:
		return Disclosure{ShowContact: true}
	case models.CategoryFound:
		if !item.ContactPreference {
			return Disclosure{MediationAdvised: true}
		}
		return Disclosure{
			ShowContact:   claimed,
			ClaimRequired: true,
			CanClaim:      !claimed,
		}
	default:
		return Disclosure{}
	}
}
