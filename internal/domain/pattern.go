package domain

import (
	"time"
)

// Pattern is one distributable design file in the catalog. The row is created
// as a placeholder before its binaries exist, then finalized with asset URLs;
// a staged pattern is invisible to browsing until its batch is committed.
type Pattern struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName       string  `gorm:"column:file_name;not null;index" json:"file_name"`
	FileExtension  string  `gorm:"column:file_extension;not null" json:"file_extension"`
	FileSize       int64   `gorm:"column:file_size" json:"file_size"`
	Author         *string `gorm:"column:author" json:"author,omitempty"`
	AuthorURL      *string `gorm:"column:author_url" json:"author_url,omitempty"`
	AuthorNotes    *string `gorm:"column:author_notes" json:"author_notes,omitempty"`
	Notes          *string `gorm:"column:notes" json:"notes,omitempty"`
	ThumbnailURL   *string `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	PatternFileURL *string `gorm:"column:pattern_file_url" json:"pattern_file_url,omitempty"`
	IsStaged       bool    `gorm:"column:is_staged;not null;default:false;index" json:"is_staged"`
	BatchID        *int64  `gorm:"column:batch_id;index" json:"batch_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Pattern) TableName() string { return "patterns" }

// AssetKey is the object key for the pattern binary, derived from the
// store-assigned identity.
func (p *Pattern) AssetKey() string {
	return assetKey(p.ID, p.FileExtension)
}

// ThumbnailKey is the object key for the pattern's rendered preview image.
func (p *Pattern) ThumbnailKey() string {
	return thumbnailKey(p.ID)
}
