package compose_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/outreach-engine/internal/compose"
	"github.com/ignite/outreach-engine/internal/domain"
)

func newComposer(t *testing.T, dir string) *compose.Liquid {
	t.Helper()
	c, err := compose.NewLiquid(dir, map[string]interface{}{
		"sender_name":      "Alex Rivera",
		"sender_signature": "alex@rivera.dev",
		"sender_headline":  "Platform Engineer",
	})
	require.NoError(t, err)
	return c
}

func TestComposeInitial(t *testing.T) {
	c := newComposer(t, "")

	msg, err := c.Compose(domain.EventInitial, domain.Candidate{
		Address:      "jane.doe@acme.com",
		Organization: "acme",
		Attributes: map[string]string{
			"role":         "Backend Engineer",
			"posting_link": "https://acme.com/jobs/42",
		},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "Backend Engineer")
	assert.Contains(t, msg.Subject, "Acme")
	assert.Contains(t, msg.Body, "Hi Jane,")
	assert.Contains(t, msg.Body, "https://acme.com/jobs/42")
	assert.Contains(t, msg.Body, "Alex Rivera")
}

func TestComposeFallbacks(t *testing.T) {
	c := newComposer(t, "")

	// No attributes at all and a non-name local part: greeting falls
	// back to "there", role to the generic phrasing.
	msg, err := c.Compose(domain.EventInitial, domain.Candidate{
		Address:      "jobs2026@globex.io",
		Organization: "globex",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Hi there,")
	assert.Contains(t, msg.Subject, "your open role")
}

func TestComposeFollowupThreadsSubject(t *testing.T) {
	c := newComposer(t, "")
	cand := domain.Candidate{
		Address:      "raj@globex.io",
		Organization: "globex",
		Attributes:   map[string]string{"role": "SRE"},
	}

	initial, err := c.Compose(domain.EventInitial, cand, nil)
	require.NoError(t, err)

	followup, err := c.Compose(domain.EventFollowup, cand, &domain.Contact{Address: cand.Address})
	require.NoError(t, err)

	assert.Equal(t, "Re: "+initial.Subject, followup.Subject)
	assert.Contains(t, followup.Body, "bumping this up")
}

func TestComposeAttributeOverridesDerivedName(t *testing.T) {
	c := newComposer(t, "")

	msg, err := c.Compose(domain.EventInitial, domain.Candidate{
		Address:      "jdoe@acme.com",
		Organization: "acme",
		Attributes:   map[string]string{"first_name": "Jonathan"},
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Hi Jonathan,")
}

func TestTemplateOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "initial_subject.liquid"),
		[]byte(`Quick question about {{ organization }}`),
		0o644,
	))

	c := newComposer(t, dir)
	msg, err := c.Compose(domain.EventInitial, domain.Candidate{
		Address:      "jane@acme.com",
		Organization: "acme",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Quick question about acme", msg.Subject)
	// Body still comes from the built-in template.
	assert.Contains(t, msg.Body, "Alex Rivera")
}

func TestTemplateOverrideRejectsBadSyntax(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "initial_body.liquid"),
		[]byte(`{% if broken %}no endif`),
		0o644,
	))

	_, err := compose.NewLiquid(dir, nil)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	c := newComposer(t, "")

	msg, err := c.Summary(map[string]interface{}{
		"date":                    "2026-08-29",
		"seen":                    40,
		"sent_total":              12,
		"initials_sent":           10,
		"followups_sent":          2,
		"denied":                  25,
		"skipped":                 3,
		"recipients":              "  acme -> jane@acme.com (initial)",
		"total_sent":              105,
		"total_replies":           7,
		"reply_rate":              "6.7%",
		"organizations_contacted": 62,
	})
	require.NoError(t, err)

	assert.Equal(t, "Outreach summary — 2026-08-29 | 12 sent", msg.Subject)
	assert.Contains(t, msg.Body, "Initials sent       : 10")
	assert.Contains(t, msg.Body, "jane@acme.com")
	assert.Contains(t, msg.Body, "Reply rate          : 6.7%")
}
