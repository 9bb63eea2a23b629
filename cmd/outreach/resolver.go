package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/feed"
)

// directoryResolver resolves postings against a local contact directory:
// the jsonl candidate file is reused as a lookup table, and a posting
// matches an entry when the entry's organization appears in the posting
// title, link or source. Address discovery proper is out of scope; this
// covers the common case where the operator already curated contacts per
// organization.
type directoryResolver struct {
	entries []domain.Candidate
}

func newDirectoryResolver(path string) (*directoryResolver, error) {
	if path == "" {
		return nil, fmt.Errorf("feed.path must point at a contact directory for the rss feed")
	}
	f, err := feed.OpenJSONL(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := &directoryResolver{}
	for {
		c, err := f.Next(context.Background())
		if err != nil {
			return nil, err
		}
		if c == nil {
			break
		}
		if c.Valid() {
			r.entries = append(r.entries, *c)
		}
	}
	return r, nil
}

func (r *directoryResolver) Resolve(_ context.Context, p feed.Posting) ([]domain.Candidate, error) {
	haystack := strings.ToLower(p.Title + " " + p.Link + " " + p.Source)

	var out []domain.Candidate
	for _, c := range r.entries {
		if strings.Contains(haystack, strings.ToLower(c.Organization)) {
			out = append(out, c)
		}
	}
	return out, nil
}
