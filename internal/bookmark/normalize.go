package bookmark

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace to single spaces.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NormalizeTag normalizes a single tag: Normalize, strip a leading '#',
// and join words with '-'. Returns "" for tags that normalize to nothing.
func NormalizeTag(tag string) string {
	t := Normalize(tag)
	t = strings.TrimLeft(t, "#")
	t = strings.TrimSpace(t)
	return strings.ReplaceAll(t, " ", "-")
}

// NormalizeTags normalizes every tag and removes empties and duplicates,
// keeping first-seen order. Returns a non-nil slice.
func NormalizeTags(tags []string) []string {
	return MergeTags(tags)
}

// MergeTags returns the normalized union of the given tag lists.
// Earlier lists win ordering, so manual tags passed first stay first.
func MergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, list := range lists {
		for _, raw := range list {
			t := NormalizeTag(raw)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			result = append(result, t)
		}
	}
	return result
}

// Domain extracts the lowercased host of rawURL without a leading "www.".
// Returns "" when rawURL has no host.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// NormalizeDomain accepts either a bare host or a URL and returns the Domain form.
func NormalizeDomain(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	return Domain(s)
}

// ValidateURL checks that rawURL is an absolute http(s) URL and returns it trimmed.
func ValidateURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return rawURL, true
}

// Truncate cuts s to at most maxChars runes without splitting a rune.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i]
		}
		n++
	}
	return s
}

// EmbeddingText builds the text that is embedded for a bookmark: title, note,
// then page content, truncated to maxChars runes. Enrichment output is left
// out so a bookmark embeds the same whether or not enrichment ran.
func EmbeddingText(b *Bookmark, maxChars int) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{b.Title, b.UserNote, b.ContentText} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return Truncate(strings.Join(parts, "\n\n"), maxChars)
}
