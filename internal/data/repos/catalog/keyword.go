package catalog

import (
	"gorm.io/gorm"

	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

type KeywordRepo interface {
	ValuesByPatternIDs(dbc dbctx.Context, patternIDs []int64) (map[int64][]string, error)
}

type keywordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKeywordRepo(db *gorm.DB, baseLog *logger.Logger) KeywordRepo {
	repoLog := baseLog.With("repo", "KeywordRepo")
	return &keywordRepo{db: db, log: repoLog}
}

func (r *keywordRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *keywordRepo) ValuesByPatternIDs(dbc dbctx.Context, patternIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(patternIDs))
	if len(patternIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		PatternID int64
		Value     string
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Table("pattern_keywords").
		Select("pattern_keywords.pattern_id, keywords.value").
		Joins("JOIN keywords ON keywords.id = pattern_keywords.keyword_id").
		Where("pattern_keywords.pattern_id IN ?", patternIDs).
		Order("keywords.value").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PatternID] = append(out[row.PatternID], row.Value)
	}
	return out, nil
}
