package ingest

import (
	"fmt"
	"strings"

	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
)

// existingNamePageSize bounds memory while enumerating the catalog; the
// production table is tens of thousands of rows.
const existingNamePageSize = 1000

// PatternNameLister is the slice of the catalog store the duplicate check
// needs: a paged enumeration of every stored file name.
type PatternNameLister interface {
	ListFileNames(dbc dbctx.Context, offset, limit int) ([]string, error)
}

// ExistingNames pages the full catalog into a set of normalized names
// (extension stripped, case-folded), matching candidate normalization.
func ExistingNames(dbc dbctx.Context, repo PatternNameLister) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	offset := 0
	for {
		names, err := repo.ListFileNames(dbc, offset, existingNamePageSize)
		if err != nil {
			return nil, fmt.Errorf("list catalog file names at offset %d: %w", offset, err)
		}
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				existing[NormalizeName(name)] = struct{}{}
			}
		}
		if len(names) < existingNamePageSize {
			break
		}
		offset += existingNamePageSize
	}
	return existing, nil
}

// Partition splits candidates into those new to the catalog and those whose
// normalized name already exists. Duplicates are reported, never written.
func Partition(candidates []Candidate, existing map[string]struct{}) (fresh, duplicates []Candidate) {
	for _, c := range candidates {
		if _, ok := existing[c.Name]; ok {
			duplicates = append(duplicates, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return fresh, duplicates
}
