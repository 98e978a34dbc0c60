package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"gorm.io/gorm"
)

type Postings struct {
	db *gorm.DB
}

func NewPostingsRepository(db *gorm.DB) *Postings {
	return &Postings{db: db}
}

// Save inserts the posting and reports whether it was new. A row with the
// same link already present yields (false, nil); uniqueness is enforced by
// the store's constraint, not by a pre-check, so concurrent inserts cannot
// race. Any other persistence failure is returned as an error.
func (p Postings) Save(ctx context.Context, posting entities.Posting) (bool, error) {
	stored := posting.ToStored()
	err := p.db.WithContext(ctx).Create(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByLink reads a posting back by its natural key.
func (p Postings) GetByLink(ctx context.Context, link string) (*entities.Posting, error) {
	var stored entities.StoredPosting
	err := p.db.WithContext(ctx).Where("link = ?", link).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	posting := stored.ToPosting()
	return &posting, nil
}

func (p Postings) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(entities.StoredPosting{}).Count(&count).Error
	return count, err
}

// RemoveOldPostings deletes rows created before expirationTime and returns
// the number of affected rows.
func (p Postings) RemoveOldPostings(ctx context.Context, expirationTime time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Delete(&entities.StoredPosting{}, "created_at < ?", expirationTime)
	return res.RowsAffected, res.Error
}
