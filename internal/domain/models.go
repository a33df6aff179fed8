// Package domain defines the persistence model for jokes. The type here is
// mapped with GORM and forms the core data layer of the jokes application.
package domain

import (
	"time"
)

// Joke represents a single stored joke. Jokes can be created directly through
// the API or pulled in from the external joke-of-the-day provider by the
// background sync worker; both routes share the same uniqueness rule on the
// joke text.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), assigned once at insert.
//   - Text: the joke content; unique across the table (exact, case-sensitive).
//   - SourceID: identifier assigned by the external provider when the joke
//     originated there; nil for manually created jokes.
//   - CreatedAt: set once at insert time (UTC); never modified afterwards.
//   - UpdatedAt: nil until the first successful update, then bumped on every
//     update. GORM's automatic touch is disabled so the service layer stays
//     the single writer of this field.
type Joke struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	Text      string     `json:"text"       gorm:"type:text;not null;uniqueIndex:ux_jokes_text"`
	SourceID  *string    `json:"source_id"  gorm:"type:varchar(64)"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Joke.
func (Joke) TableName() string { return "jokes" }
