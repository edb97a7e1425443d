package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lostfound-api/internal/models"
)

func disclosureItem(category models.ItemCategory, status models.ItemStatus, preference bool) *models.Item {
	return &models.Item{
		ID:                "i1",
		ReportedBy:        "owner",
		Category:          category,
		Status:            status,
		ContactPreference: preference,
	}
}

func TestEvaluateDisclosureOwnerAlwaysSeesContact(t *testing.T) {
	item := disclosureItem(models.CategoryFound, models.StatusOpen, false)

	d := EvaluateDisclosure(item, "owner", false)
	assert.True(t, d.ShowContact)
	assert.True(t, d.CanMarkReturned)
	assert.False(t, d.ClaimRequired)
}

func TestEvaluateDisclosureOwnerOnReturnedItem(t *testing.T) {
	item := disclosureItem(models.CategoryLost, models.StatusReturned, false)

	d := EvaluateDisclosure(item, "owner", false)
	assert.True(t, d.ShowContact)
	assert.False(t, d.CanMarkReturned)
}

func TestEvaluateDisclosureReturnedHidesFromOthers(t *testing.T) {
	for _, category := range []models.ItemCategory{models.CategoryLost, models.CategoryFound} {
		item := disclosureItem(category, models.StatusReturned, true)

		d := EvaluateDisclosure(item, "someone-else", true)
		assert.Equal(t, Disclosure{}, d, "category %s", category)
	}
}

func TestEvaluateDisclosureOpenLostIsPublic(t *testing.T) {
	item := disclosureItem(models.CategoryLost, models.StatusOpen, false)

	d := EvaluateDisclosure(item, "someone-else", false)
	assert.True(t, d.ShowContact)
	assert.False(t, d.ClaimRequired)
	assert.False(t, d.MediationAdvised)
}

func TestEvaluateDisclosureFoundWithOptInIsClaimGated(t *testing.T) {
	item := disclosureItem(models.CategoryFound, models.StatusOpen, true)

	before := EvaluateDisclosure(item, "someone-else", false)
	assert.False(t, before.ShowContact)
	assert.True(t, before.ClaimRequired)
	assert.True(t, before.CanClaim)

	after := EvaluateDisclosure(item, "someone-else", true)
	assert.True(t, after.ShowContact)
	assert.True(t, after.ClaimRequired)
	assert.False(t, after.CanClaim)
}

func TestEvaluateDisclosureFoundWithoutOptInAdvisesMediation(t *testing.T) {
	item := disclosureItem(models.CategoryFound, models.StatusOpen, false)

	d := EvaluateDisclosure(item, "someone-else", true)
	assert.False(t, d.ShowContact)
	assert.False(t, d.ClaimRequired)
	assert.True(t, d.MediationAdvised)
}

func TestEvaluateDisclosureFailsClosedOnUnknownEnums(t *testing.T) {
	unknownCategory := disclosureItem("swap", models.StatusOpen, true)
	assert.Equal(t, Disclosure{}, EvaluateDisclosure(unknownCategory, "someone-else", true))

	unknownStatus := disclosureItem(models.CategoryLost, "archived", true)
	assert.Equal(t, Disclosure{}, EvaluateDisclosure(unknownStatus, "someone-else", true))
}

func TestEvaluateDisclosureNilItem(t *testing.T) {
	assert.Equal(t, Disclosure{}, EvaluateDisclosure(nil, "viewer", true))
}

func TestEvaluateDisclosureAnonymousViewer(t *testing.T) {
	item := disclosureItem(models.CategoryLost, models.StatusOpen, false)
	item.ReportedBy = ""

	// An empty viewer ID never counts as the reporter, even when the
	// stored reporter ID is also empty.
	d := EvaluateDisclosure(item, "", false)
	assert.True(t, d.ShowContact)
	assert.False(t, d.CanMarkReturned)
}
