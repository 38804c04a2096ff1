package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	BatchStatusStaged    = "staged"
	BatchStatusCommitted = "committed"
)

// UploadBatch is the audit row for one bulk-ingestion run. A staged run
// creates it up front and finalizes it exactly once with outcome counts; a
// direct-commit run records a single already-final row after the work.
type UploadBatch struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceArchiveName string `gorm:"column:source_archive_name;not null" json:"source_archive_name"`
	UploadedBy        string `gorm:"column:uploaded_by;not null" json:"uploaded_by"`

	TotalCandidates int `gorm:"column:total_candidates;not null;default:0" json:"total_candidates"`
	UploadedCount   int `gorm:"column:uploaded_count;not null;default:0" json:"uploaded_count"`
	SkippedCount    int `gorm:"column:skipped_count;not null;default:0" json:"skipped_count"`
	ErrorCount      int `gorm:"column:error_count;not null;default:0" json:"error_count"`

	UploadedList datatypes.JSON `gorm:"column:uploaded_list;type:jsonb" json:"uploaded_list,omitempty"`
	SkippedList  datatypes.JSON `gorm:"column:skipped_list;type:jsonb" json:"skipped_list,omitempty"`
	ErrorList    datatypes.JSON `gorm:"column:error_list;type:jsonb" json:"error_list,omitempty"`

	Status string `gorm:"column:status;not null;default:'staged';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UploadBatch) TableName() string { return "upload_batches" }

func assetKey(id int64, extension string) string {
	return fmt.Sprintf("%d.%s", id, extension)
}

func thumbnailKey(id int64) string {
	return fmt.Sprintf("%d.png", id)
}
