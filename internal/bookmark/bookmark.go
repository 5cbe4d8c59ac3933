package bookmark

// Bookmark is one ingested URL with its metadata.
// The embedding lives in the vector index only, keyed by ID.
type Bookmark struct {
	// ID is a ULID assigned at creation; it joins the metadata row to its vector
	ID string `json:"id"`

	// URL is the submitted address as given by the caller
	URL string `json:"url"`

	// Domain is the lowercased host of URL without a leading "www."
	Domain string `json:"domain"`

	// Title comes from the fetched page, falling back to the URL
	Title string `json:"title"`

	// ContentText is the extracted page text, truncated before storage
	ContentText string `json:"content_text,omitempty"`

	// UserNote is caller-supplied free text
	UserNote string `json:"user_note"`

	// Tags is the merged, normalized, deduplicated tag set
	Tags []string `json:"tags"`

	// SummaryShort and Topic are enrichment outputs (nil when enrichment is off or failed)
	SummaryShort *string `json:"summary_short,omitempty"`
	Topic        *string `json:"topic,omitempty"`

	// CreatedAt and UpdatedAt are Unix timestamps (seconds)
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Clone returns a deep copy so callers can snapshot a row before mutating it.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	if b.Tags != nil {
		c.Tags = append([]string(nil), b.Tags...)
	}
	if b.SummaryShort != nil {
		s := *b.SummaryShort
		c.SummaryShort = &s
	}
	if b.Topic != nil {
		s := *b.Topic
		c.Topic = &s
	}
	return &c
}

// HasTags reports whether every tag in want is present on the bookmark.
// want must already be normalized.
func (b *Bookmark) HasTags(want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]bool, len(b.Tags))
	for _, t := range b.Tags {
		have[t] = true
	}
	for _, t := range want {
		if !have[t] {
			return false
		}
	}
	return true
}
