package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
)

// Pattern files are machine instructions for the longarm; only QLI is
// distributable. A sibling PDF with the same base name is its preview.
const (
	DesignExtension  = ".qli"
	PreviewExtension = ".pdf"
)

// Candidate is one provisional pattern derived from archive entries: a design
// file plus an optional preview, keyed by the normalized base name.
type Candidate struct {
	Name        string
	DesignPath  string
	PreviewPath string
}

// Archive wraps a parsed ZIP upload. Entry order follows the archive's
// central directory, which matters for candidate grouping.
type Archive struct {
	files   []*zip.File
	entries map[string]*zip.File
}

func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArchive, err)
	}
	a := &Archive{
		files:   make([]*zip.File, 0, len(zr.File)),
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.files = append(a.files, f)
		a.entries[f.Name] = f
	}
	return a, nil
}

// Candidates groups every non-directory entry by normalized base name. When
// two entries map to the same base name and extension class, the later one in
// the walk wins. Groups without a design file are dropped; a preview alone is
// not a pattern.
func (a *Archive) Candidates() ([]Candidate, error) {
	type group struct {
		design  string
		preview string
	}
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, f := range a.files {
		name := NormalizeName(f.Name)
		ext := strings.ToLower(path.Ext(f.Name))

		g, ok := groups[name]
		if !ok {
			g = &group{}
			groups[name] = g
			order = append(order, name)
		}
		switch ext {
		case DesignExtension:
			g.design = f.Name
		case PreviewExtension:
			g.preview = f.Name
		}
	}

	candidates := make([]Candidate, 0, len(groups))
	for _, name := range order {
		g := groups[name]
		if g.design == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:        name,
			DesignPath:  g.design,
			PreviewPath: g.preview,
		})
	}
	if len(candidates) == 0 {
		return nil, pkgerrors.ErrNoCandidates
	}
	return candidates, nil
}

func (a *Archive) ReadEntry(entryPath string) ([]byte, error) {
	f, ok := a.entries[entryPath]
	if !ok {
		return nil, fmt.Errorf("archive entry %q not found", entryPath)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %q: %w", entryPath, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive entry %q: %w", entryPath, err)
	}
	return data, nil
}

// NormalizeName reduces an entry path to its case-folded base name without
// extension: "Baby Blue Eyes - QLI/baby-blue-eyes-1.QLI" -> "baby-blue-eyes-1".
func NormalizeName(entryPath string) string {
	base := path.Base(entryPath)
	ext := path.Ext(base)
	return strings.ToLower(strings.TrimSuffix(base, ext))
}
