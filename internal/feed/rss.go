package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/httpretry"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Posting is one entry from a postings feed: a reason to reach out, not
// yet a contact. How a posting becomes addressable contacts is the
// Resolver's business.
type Posting struct {
	Title     string
	Link      string
	GUID      string
	Published *time.Time
	Source    string
}

// Resolver turns a posting into zero or more candidates. Implementations
// own organization extraction and address discovery, both of which are external
// concerns the engine only consumes the results of.
type Resolver interface {
	Resolve(ctx context.Context, p Posting) ([]domain.Candidate, error)
}

// RSS is a feed over one or more postings feeds (RSS/Atom), resolved to
// candidates lazily on first use. Feed order follows the configured URL
// order, then item order within each feed.
type RSS struct {
	urls     []string
	resolver Resolver
	parser   *gofeed.Parser
	client   httpretry.HTTPDoer
	timeout  time.Duration

	fetched bool
	queue   []domain.Candidate
	pos     int
}

// NewRSS builds a postings feed over the given URLs. Fetches go through
// a retrying client; feed hosts throttle and flap routinely.
func NewRSS(urls []string, resolver Resolver, timeout time.Duration) *RSS {
	return &RSS{
		urls:     urls,
		resolver: resolver,
		parser:   gofeed.NewParser(),
		client:   httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 3),
		timeout:  timeout,
	}
}

func (r *RSS) Next(ctx context.Context) (*domain.Candidate, error) {
	if !r.fetched {
		if err := r.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.pos >= len(r.queue) {
		return nil, nil
	}
	c := r.queue[r.pos]
	r.pos++
	return &c, nil
}

func (r *RSS) fetch(ctx context.Context) error {
	r.fetched = true
	for _, url := range r.urls {
		parsed, err := r.fetchOne(ctx, url)
		if err != nil {
			// One dead source should not starve the others.
			logger.Warn("postings feed fetch failed", "url", url, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			p := Posting{
				Title:     item.Title,
				Link:      item.Link,
				GUID:      item.GUID,
				Published: item.PublishedParsed,
				Source:    parsed.Title,
			}
			candidates, err := r.resolver.Resolve(ctx, p)
			if err != nil {
				logger.Warn("posting resolution failed", "posting", p.Title, "error", err)
				continue
			}
			for _, c := range candidates {
				if c.Attributes == nil {
					c.Attributes = map[string]string{}
				}
				if _, ok := c.Attributes["posting_title"]; !ok {
					c.Attributes["posting_title"] = p.Title
				}
				if _, ok := c.Attributes["posting_link"]; !ok {
					c.Attributes["posting_link"] = p.Link
				}
				r.queue = append(r.queue, c)
			}
		}
	}
	if len(r.urls) > 0 && len(r.queue) == 0 {
		logger.Info("postings feeds produced no candidates")
	}
	return nil
}

func (r *RSS) fetchOne(ctx context.Context, url string) (*gofeed.Feed, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return r.parser.Parse(resp.Body)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, p Posting) ([]domain.Candidate, error)

func (f ResolverFunc) Resolve(ctx context.Context, p Posting) ([]domain.Candidate, error) {
	return f(ctx, p)
}

var _ fmt.Stringer = Posting{}

// String identifies the posting in logs without dumping the whole struct.
func (p Posting) String() string { return fmt.Sprintf("%s (%s)", p.Title, p.Link) }
