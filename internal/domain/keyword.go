package domain

// Keyword rows are maintained by a separate tagging workflow; this service
// only reads them to decorate batch and pattern responses.
type Keyword struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Value string `gorm:"column:value;not null;uniqueIndex" json:"value"`
}

func (Keyword) TableName() string { return "keywords" }

type PatternKeyword struct {
	PatternID int64 `gorm:"column:pattern_id;primaryKey" json:"pattern_id"`
	KeywordID int64 `gorm:"column:keyword_id;primaryKey" json:"keyword_id"`
}

func (PatternKeyword) TableName() string { return "pattern_keywords" }
