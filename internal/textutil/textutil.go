// Package textutil provides the small text transformations shared by the
// token matcher and the inbox scanner: HTML stripping, whitespace
// collapsing, and storage-bound truncation.
package textutil

import (
	"regexp"
	"strings"
)

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// entityReplacer decodes the handful of entities that matter for token
// matching and plain-text rendering.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// StripHTML removes HTML tags from a string and decodes common entities,
// providing a basic plain-text rendering.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")
	result = entityReplacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

// illegalPathChars are replaced when deriving directory and file names
// from mail-supplied strings.
var illegalPathChars = regexp.MustCompile(`[\\/:*?"<>|]+`)

// SanitizeFileName removes path-hostile characters from a name, falling
// back to fallback when nothing survives.
func SanitizeFileName(name, fallback string) string {
	clean := strings.TrimSpace(illegalPathChars.ReplaceAllString(name, "_"))
	if clean == "" {
		return fallback
	}
	return clean
}

var spaceRunPattern = regexp.MustCompile(`[ \t]{2,}`)

// CollapseWhitespace squeezes runs of spaces and tabs into a single
// space, leaving newlines intact.
func CollapseWhitespace(s string) string {
	return spaceRunPattern.ReplaceAllString(s, " ")
}

// Truncate bounds s to at most max characters. max <= 0 disables the
// limit.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
