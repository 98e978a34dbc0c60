package entities

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// maximum title length for sources without an explicit title field
const MaxTitleLength = 100

var validate = validator.New()

// Posting is the normalized job posting every scraper produces.
// It is immutable after construction; Link is the natural dedup key.
type Posting struct {
	Title       string `validate:"required"`
	Company     string
	Link        string `validate:"required,url"`
	Description string `validate:"required"`
	Source      string `validate:"required"`

	// detail metadata, populated by the web-board scraper only
	PositionLevel string
	Location      string
	Deadline      string
	Experience    string
	PostedDate    string
}

// NewPosting validates required fields and that Link is a well-formed
// absolute URL. Scrapers drop the posting when construction fails.
func NewPosting(p Posting) (Posting, error) {
	if err := validate.Struct(p); err != nil {
		return Posting{}, err
	}
	return p, nil
}

// StoredPosting is the durable row backing a Posting in the dedup store.
// Columns are added over time; gorm's AutoMigrate appends missing ones
// without touching existing rows.
type StoredPosting struct {
	ID          int    `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Company     string
	Link        string `gorm:"not null;uniqueIndex"`
	Description string
	Source      string `gorm:"not null"`

	PositionLevel string
	Location      string
	Deadline      string
	Experience    string
	PostedDate    string

	CreatedAt time.Time
}

func (StoredPosting) TableName() string {
	return "postings"
}

// ToStored maps a Posting onto its database row.
func (p Posting) ToStored() StoredPosting {
	return StoredPosting{
		Title:         p.Title,
		Company:       p.Company,
		Link:          p.Link,
		Description:   p.Description,
		Source:        p.Source,
		PositionLevel: p.PositionLevel,
		Location:      p.Location,
		Deadline:      p.Deadline,
		Experience:    p.Experience,
		PostedDate:    p.PostedDate,
	}
}

// ToPosting maps a stored row back onto the value object.
func (s StoredPosting) ToPosting() Posting {
	return Posting{
		Title:         s.Title,
		Company:       s.Company,
		Link:          s.Link,
		Description:   s.Description,
		Source:        s.Source,
		PositionLevel: s.PositionLevel,
		Location:      s.Location,
		Deadline:      s.Deadline,
		Experience:    s.Experience,
		PostedDate:    s.PostedDate,
	}
}
