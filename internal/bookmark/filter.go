package bookmark

// Filter holds the exact-match filters shared by list and search.
// The same Match is used in memory (search) and mirrored in SQL (list),
// so both paths agree on what a filter means.
type Filter struct {
	// Tags must all be present (normalized).
	Tags []string

	// Domain must equal the bookmark's domain (normalized).
	Domain string

	// Since and Until bound CreatedAt, inclusive. Nil means unbounded.
	Since *int64
	Until *int64
}

// NewFilter normalizes raw filter values.
func NewFilter(tags []string, domain string, since, until *int64) Filter {
	f := Filter{
		Tags:   NormalizeTags(tags),
		Domain: NormalizeDomain(domain),
		Since:  since,
		Until:  until,
	}
	if len(f.Tags) == 0 {
		f.Tags = nil
	}
	return f
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return len(f.Tags) == 0 && f.Domain == "" && f.Since == nil && f.Until == nil
}

// Match reports whether b passes every filter.
func (f Filter) Match(b *Bookmark) bool {
	if f.Domain != "" && b.Domain != f.Domain {
		return false
	}
	if f.Since != nil && b.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && b.CreatedAt > *f.Until {
		return false
	}
	return b.HasTags(f.Tags)
}
