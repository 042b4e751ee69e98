package task

import (
	"regexp"
	"strings"
)

const (
	maxSlugLength = 50
	idPrefixLen   = 8
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slug converts a title to a filename-friendly slug, cut at a word boundary.
func Slug(title string) string {
	slug := strings.ToLower(title)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		truncated := slug[:maxSlugLength]
		// Only trim to last hyphen if we cut mid-word.
		if slug[maxSlugLength] != '-' {
			if idx := strings.LastIndex(truncated, "-"); idx > 0 {
				truncated = truncated[:idx]
			}
		}
		slug = strings.TrimRight(truncated, "-")
	}
	if slug == "" {
		slug = "task"
	}
	return slug
}

// Filename returns the export filename of t: a short ID prefix and the slug.
func Filename(t Task) string {
	id := strings.ReplaceAll(t.ID, "-", "")
	if len(id) > idPrefixLen {
		id = id[:idPrefixLen]
	}
	if id == "" {
		return Slug(t.Title) + ".md"
	}
	return id + "-" + Slug(t.Title) + ".md"
}
