package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/jobs-aggregator/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbContext owns the sqlite connection for one pipeline run. The connection
// string is a file path or ":memory:".
type DbContext struct {
	DB     *gorm.DB
	closed bool
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

// Migrate creates the postings table when missing and appends any columns
// added since the installation was created. AutoMigrate inspects the live
// column set and issues ADD COLUMN for each absent one, preserving rows.
func (c *DbContext) Migrate() error {
	if err := c.DB.AutoMigrate(entities.StoredPosting{}); err != nil {
		return fmt.Errorf("failed to migrate StoredPosting entity: %w", err)
	}
	return nil
}

// Close releases the underlying connection. Safe to call twice.
func (c *DbContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
