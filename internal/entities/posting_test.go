package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewPosting_WithValidFields_ShouldSucceed(t *testing.T) {

	posting, err := NewPosting(Posting{
		Title:       "Senior Backend Developer",
		Company:     "Acme",
		Link:        "https://example.com/jobs/123",
		Description: "Senior Backend Developer",
		Source:      "Jobs.ps",
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/jobs/123", posting.Link)
}

func Test_NewPosting_WithMalformedLink_ShouldFail(t *testing.T) {

	_, err := NewPosting(Posting{
		Title:       "Backend Developer",
		Link:        "not a url",
		Description: "Backend Developer",
		Source:      "Jobs.ps",
	})

	assert.Error(t, err)
}

func Test_NewPosting_WithMissingRequiredField_ShouldFail(t *testing.T) {

	_, err := NewPosting(Posting{
		Title:  "Backend Developer",
		Link:   "https://example.com/jobs/123",
		Source: "Jobs.ps",
	})

	assert.Error(t, err)
}

func Test_Posting_StoredRoundTrip_PreservesEveryField(t *testing.T) {

	posting := Posting{
		Title:         "QA Engineer",
		Company:       "Acme",
		Link:          "https://example.com/jobs/7",
		Description:   "QA Engineer needed",
		Source:        "Jobs.ps",
		PositionLevel: "Mid Career",
		Location:      "Ramallah",
		Deadline:      "2025-12-01",
		Experience:    "3 years",
		PostedDate:    "16, Nov, 2025",
	}

	assert.Equal(t, posting, posting.ToStored().ToPosting())
}

func Test_Posting_StoredRoundTrip_KeepsOptionalFieldsEmpty(t *testing.T) {

	posting := Posting{
		Title:       "DevOps Engineer",
		Link:        "https://t.me/somechannel/42",
		Description: "DevOps Engineer\nRemote",
		Source:      "Telegram (@somechannel)",
	}

	back := posting.ToStored().ToPosting()
	assert.Equal(t, posting, back)
	assert.Empty(t, back.Company)
	assert.Empty(t, back.PositionLevel)
	assert.Empty(t, back.PostedDate)
}
