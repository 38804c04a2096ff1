package services

import (
	"context"
	"fmt"

	"github.com/quiltline/patternvault-backend/internal/data/repos/catalog"
	types "github.com/quiltline/patternvault-backend/internal/domain"
	"github.com/quiltline/patternvault-backend/internal/ingest"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/gcs"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

// PatternView is a catalog row decorated for API consumers: a human-readable
// title derived from the file name, plus any curated keywords.
type PatternView struct {
	*types.Pattern
	DisplayName string   `json:"display_name"`
	Keywords    []string `json:"keywords,omitempty"`
}

type PatternService interface {
	List(ctx context.Context, offset, limit int) ([]*PatternView, error)
	Get(ctx context.Context, id int64) (*PatternView, error)
	DownloadURL(ctx context.Context, id int64) (string, error)
	Delete(ctx context.Context, id int64) error
}

type patternService struct {
	log         *logger.Logger
	patternRepo catalog.PatternRepo
	keywordRepo catalog.KeywordRepo
	bucket      gcs.BucketService
}

func NewPatternService(
	log *logger.Logger,
	patternRepo catalog.PatternRepo,
	keywordRepo catalog.KeywordRepo,
	bucket gcs.BucketService,
) PatternService {
	serviceLog := log.With("service", "PatternService")
	return &patternService{
		log:         serviceLog,
		patternRepo: patternRepo,
		keywordRepo: keywordRepo,
		bucket:      bucket,
	}
}

func (ps *patternService) List(ctx context.Context, offset, limit int) ([]*PatternView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	patterns, err := ps.patternRepo.List(dbc, offset, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(patterns))
	for _, p := range patterns {
		ids = append(ids, p.ID)
	}
	keywords, err := ps.keywordRepo.ValuesByPatternIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}

	views := make([]*PatternView, 0, len(patterns))
	for _, p := range patterns {
		views = append(views, newPatternView(p, keywords[p.ID]))
	}
	return views, nil
}

// Get serves the public detail endpoint; staged rows stay invisible until
// their batch is committed.
func (ps *patternService) Get(ctx context.Context, id int64) (*PatternView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	pattern, err := ps.patternRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if pattern.IsStaged {
		return nil, pkgerrors.ErrNotFound
	}
	keywords, err := ps.keywordRepo.ValuesByPatternIDs(dbc, []int64{id})
	if err != nil {
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	return newPatternView(pattern, keywords[id]), nil
}

func (ps *patternService) DownloadURL(ctx context.Context, id int64) (string, error) {
	pattern, err := ps.patternRepo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return "", err
	}
	if pattern.IsStaged || pattern.PatternFileURL == nil {
		return "", pkgerrors.ErrNotFound
	}
	return *pattern.PatternFileURL, nil
}

// Delete removes a single pattern and its objects. Object deletes go first so
// a failure leaves the row pointing at assets that still exist, never the
// other way around.
func (ps *patternService) Delete(ctx context.Context, id int64) error {
	dbc := dbctx.Context{Ctx: ctx}
	pattern, err := ps.patternRepo.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if pattern.PatternFileURL != nil {
		if err := ps.bucket.DeleteObjects(ctx, gcs.BucketCategoryPattern, []string{pattern.AssetKey()}); err != nil {
			return fmt.Errorf("delete pattern object: %w", err)
		}
	}
	if pattern.ThumbnailURL != nil {
		if err := ps.bucket.DeleteObjects(ctx, gcs.BucketCategoryThumbnail, []string{pattern.ThumbnailKey()}); err != nil {
			ps.log.Warn("Pattern delete left thumbnail behind", "pattern_id", id, "error", err)
		}
	}
	if err := ps.patternRepo.DeleteByIDs(dbc, []int64{id}); err != nil {
		return fmt.Errorf("delete pattern row: %w", err)
	}
	ps.log.Info("Pattern deleted", "pattern_id", id)
	return nil
}

func newPatternView(p *types.Pattern, keywords []string) *PatternView {
	return &PatternView{
		Pattern:     p,
		DisplayName: ingest.DisplayName(ingest.NormalizeName(p.FileName)),
		Keywords:    keywords,
	}
}
