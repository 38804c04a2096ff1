package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QLI files open with "NO INFO" comment lines where designers leave
// attribution: a name, a shop URL, copyright text. The format is free-form,
// so extraction is best-effort and absence of a field is never an error.
const infoMarker = "NO INFO"

var (
	designedPattern    = regexp.MustCompile(`(?i)designed\s+by\s+([^,;(]+)`)
	copyrightedPattern = regexp.MustCompile(`(?i)copyrighted\s+by\s+([^,;(]+)`)
	urlPattern         = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9][a-z0-9.-]*\.[a-z]{2,}(?:/[^\s,;]*)?`)
)

// AuthorInfo is everything extractable from a design file's marker lines.
type AuthorInfo struct {
	Author      string
	AuthorURL   string
	AuthorNotes string
}

// ExtractAuthorInfo scans the design file's textual payload for marker lines.
// The decode is tolerant: QLI payloads are mostly ASCII and stray bytes in
// the geometry section must not abort the scan.
func ExtractAuthorInfo(design []byte) AuthorInfo {
	text := string(design)

	var infoLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, infoMarker) {
			continue
		}
		infoText := strings.TrimSpace(line[len(infoMarker):])
		if infoText != "" {
			infoLines = append(infoLines, infoText)
		}
	}
	if len(infoLines) == 0 {
		return AuthorInfo{}
	}

	notes := strings.Join(infoLines, "\n")
	return AuthorInfo{
		Author:      extractAuthor(notes),
		AuthorURL:   extractURL(notes),
		AuthorNotes: notes,
	}
}

// extractAuthor prefers a "designed by" attribution over a "copyrighted by"
// one when both appear.
func extractAuthor(notes string) string {
	m := designedPattern.FindStringSubmatch(notes)
	if m == nil {
		m = copyrightedPattern.FindStringSubmatch(notes)
	}
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	// Attribution often runs straight into a URL on the same line.
	if u := urlPattern.FindStringIndex(name); u != nil {
		name = strings.TrimSpace(name[:u[0]])
	}
	return name
}

func extractURL(notes string) string {
	raw := urlPattern.FindString(notes)
	if raw == "" {
		return ""
	}
	raw = strings.ToLower(strings.TrimRight(raw, ".,;)"))
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// DisplayName turns a normalized base name into a human-readable title:
// "baby-blue-eyes-block-1" -> "Baby Blue Eyes Block 1".
func DisplayName(name string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(cleaned)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
