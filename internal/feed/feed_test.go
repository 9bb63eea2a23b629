package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/feed"
)

func TestSliceFeedPreservesOrder(t *testing.T) {
	f := feed.FromSlice([]domain.Candidate{
		{Address: "a@x.com", Organization: "x"},
		{Address: "b@y.com", Organization: "y"},
	})

	c, err := f.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", c.Address)

	c, err = f.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b@y.com", c.Address)

	c, err = f.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c, "exhausted feed returns nil candidate")
}

func TestSliceFeedHonorsCancellation(t *testing.T) {
	f := feed.FromSlice([]domain.Candidate{{Address: "a@x.com", Organization: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestJSONLFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.jsonl")
	content := `# recruiting targets, week of 2026-03-02
{"address": "jane@acme.com", "organization": "acme", "attributes": {"role": "Platform Engineer"}}

{"address": "raj@globex.io", "organization": "globex"}
not json at all
{"address": "mei@initech.dev", "organization": "initech"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := feed.OpenJSONL(path)
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()

	c, err := f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", c.Address)
	assert.Equal(t, "acme", c.Organization)
	assert.Equal(t, "Platform Engineer", c.Attributes["role"])

	c, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "raj@globex.io", c.Address)

	// Malformed line surfaces as an invalid candidate instead of killing
	// the run.
	c, err = f.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.False(t, c.Valid())

	c, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mei@initech.dev", c.Address)

	c, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestJSONLFeedMissingFile(t *testing.T) {
	_, err := feed.OpenJSONL(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
  <title>acme careers</title>
  <item><title>Backend Engineer at acme</title><link>https://acme.com/jobs/42</link><guid>42</guid></item>
  <item><title>SRE at globex</title><link>https://globex.io/jobs/7</link><guid>7</guid></item>
</channel></rss>`

func TestRSSFeedResolvesPostings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	resolver := feed.ResolverFunc(func(ctx context.Context, p feed.Posting) ([]domain.Candidate, error) {
		if p.GUID != "42" {
			return nil, nil // nothing known for this posting
		}
		return []domain.Candidate{{Address: "jane@acme.com", Organization: "acme"}}, nil
	})

	f := feed.NewRSS([]string{srv.URL}, resolver, 5*time.Second)
	ctx := context.Background()

	c, err := f.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "jane@acme.com", c.Address)
	assert.Equal(t, "Backend Engineer at acme", c.Attributes["posting_title"])
	assert.Equal(t, "https://acme.com/jobs/42", c.Attributes["posting_link"])

	c, err = f.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, c, "unresolved postings yield no candidates")
}

func TestRSSFeedSurvivesDeadSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := feed.NewRSS([]string{srv.URL}, feed.ResolverFunc(
		func(context.Context, feed.Posting) ([]domain.Candidate, error) { return nil, nil },
	), 5*time.Second)

	c, err := f.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestResolverFunc(t *testing.T) {
	r := feed.ResolverFunc(func(ctx context.Context, p feed.Posting) ([]domain.Candidate, error) {
		return []domain.Candidate{{Address: "eng@" + p.Link, Organization: p.Title}}, nil
	})

	got, err := r.Resolve(context.Background(), feed.Posting{Title: "acme", Link: "acme.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "eng@acme.com", got[0].Address)
}
