package indexer

import (
	"time"

	"github.com/google/uuid"
)

// EventRecord is one published protocol event.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   uint64    `gorm:"uniqueIndex;not null"`
	Type       string    `gorm:"size:64;index"`
	Module     string    `gorm:"size:32;index"`
	Mint       string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// Filter narrows a history query. Zero values match everything.
type Filter struct {
	Type   string
	Module string
	Mint   string
	// After returns only records with a larger sequence number.
	After uint64
	Limit int
}
