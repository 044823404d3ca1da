package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name, collapses every run of characters outside
// [a-z0-9] into a single hyphen and trims hyphens from both ends.
func Slugify(name string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// OrganizationSlug derives the globally unique slug of an organization from
// its name and creation time. The base-36 millisecond suffix keeps slugs
// unique without a lookup.
func OrganizationSlug(name string, createdAt time.Time) string {
	suffix := strconv.FormatInt(createdAt.UnixMilli(), 36)
	base := Slugify(name)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// validProjectSlug reports whether s can be used verbatim as a project slug.
func validProjectSlug(s string) bool {
	return slug.IsSlug(s) && !strings.Contains(s, "_") && !strings.Contains(s, "--")
}
