package policy

import (
	"testing"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

var testLimits = domain.Limits{
	DailyCap:      35,
	OrgCap:        3,
	MaxFollowups:  1,
	FollowupAfter: 5 * 24 * time.Hour,
}

func contactSentAt(at time.Time, followups int, replied bool) *domain.Contact {
	first := at
	last := at
	return &domain.Contact{
		Address:          "a@example.com",
		Organization:     "example",
		FirstContactedAt: &first,
		LastContactedAt:  &last,
		FollowupCount:    followups,
		Replied:          replied,
	}
}

func TestEvaluateUnseen(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		snap      Snapshot
		wantAllow bool
		wantKind  domain.EventType
		wantDeny  domain.DenyReason
	}{
		{
			name:      "headroom on both caps",
			snap:      Snapshot{Contact: nil, OrgSent: 0, SentToday: 0},
			wantAllow: true,
			wantKind:  domain.EventInitial,
		},
		{
			name:     "daily cap reached",
			snap:     Snapshot{Contact: nil, OrgSent: 0, SentToday: 35},
			wantDeny: domain.DenyDailyCapReached,
		},
		{
			name:     "org cap reached with daily headroom",
			snap:     Snapshot{Contact: nil, OrgSent: 3, SentToday: 1},
			wantDeny: domain.DenyOrgCapReached,
		},
		{
			name:     "daily cap wins over org cap",
			snap:     Snapshot{Contact: nil, OrgSent: 3, SentToday: 35},
			wantDeny: domain.DenyDailyCapReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.snap, testLimits, now)
			if d.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v (decision %+v)", d.Allowed, tt.wantAllow, d)
			}
			if tt.wantAllow && d.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", d.Kind, tt.wantKind)
			}
			if !tt.wantAllow && d.Reason != tt.wantDeny {
				t.Errorf("Reason = %s, want %s", d.Reason, tt.wantDeny)
			}
		})
	}
}

func TestEvaluateRepliedShortCircuits(t *testing.T) {
	// Day 0 send, reply on day 1, evaluated on day 5 when the follow-up
	// would otherwise be due: the reply must win.
	sent := time.Now().Add(-5 * 24 * time.Hour)
	snap := Snapshot{Contact: contactSentAt(sent, 0, true)}

	d := Evaluate(snap, testLimits, time.Now())
	if d.Allowed {
		t.Fatal("replied contact must never be allowed")
	}
	if d.Reason != domain.DenyAlreadyReplied {
		t.Errorf("Reason = %s, want %s", d.Reason, domain.DenyAlreadyReplied)
	}

	// Replied also beats cap reasons.
	snap.SentToday = 35
	snap.OrgSent = 3
	if d := Evaluate(snap, testLimits, time.Now()); d.Reason != domain.DenyAlreadyReplied {
		t.Errorf("with caps exhausted Reason = %s, want %s", d.Reason, domain.DenyAlreadyReplied)
	}
}

func TestEvaluateFollowupTiming(t *testing.T) {
	now := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		elapsed   time.Duration
		followups int
		wantAllow bool
		wantDeny  domain.DenyReason
	}{
		{"same day duplicate", 2 * time.Hour, 0, false, domain.DenyFollowupNotDue},
		{"one day early", 4 * 24 * time.Hour, 0, false, domain.DenyFollowupNotDue},
		{"exactly at threshold", 5 * 24 * time.Hour, 0, true, ""},
		{"past threshold", 9 * 24 * time.Hour, 0, true, ""},
		{"follow-up cap reached", 10 * 24 * time.Hour, 1, false, domain.DenyFollowupCapReached},
		{"cap reached and not due reports not due", 2 * 24 * time.Hour, 1, false, domain.DenyFollowupNotDue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Contact: contactSentAt(now.Add(-tt.elapsed), tt.followups, false)}
			d := Evaluate(snap, testLimits, now)
			if d.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v (decision %+v)", d.Allowed, tt.wantAllow, d)
			}
			if tt.wantAllow && d.Kind != domain.EventFollowup {
				t.Errorf("Kind = %s, want %s", d.Kind, domain.EventFollowup)
			}
			if !tt.wantAllow && d.Reason != tt.wantDeny {
				t.Errorf("Reason = %s, want %s", d.Reason, tt.wantDeny)
			}
		})
	}
}

func TestEvaluateDueFollowupStillSubjectToCaps(t *testing.T) {
	now := time.Now()
	snap := Snapshot{Contact: contactSentAt(now.Add(-6*24*time.Hour), 0, false), SentToday: 35}
	if d := Evaluate(snap, testLimits, now); d.Reason != domain.DenyDailyCapReached {
		t.Errorf("Reason = %s, want %s", d.Reason, domain.DenyDailyCapReached)
	}

	snap = Snapshot{Contact: contactSentAt(now.Add(-6*24*time.Hour), 0, false), OrgSent: 3}
	if d := Evaluate(snap, testLimits, now); d.Reason != domain.DenyOrgCapReached {
		t.Errorf("Reason = %s, want %s", d.Reason, domain.DenyOrgCapReached)
	}
}

func TestEvaluateSkippedContactTreatedAsUnseen(t *testing.T) {
	// A contact that exists only through skipped events (dispatch failed
	// yesterday) has no initial send and must be eligible again.
	snap := Snapshot{Contact: &domain.Contact{Address: "a@example.com", Organization: "example"}}
	d := Evaluate(snap, testLimits, time.Now())
	if !d.Allowed || d.Kind != domain.EventInitial {
		t.Errorf("skipped-only contact got %+v, want Allow(initial)", d)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	now := time.Now()
	c := contactSentAt(now.Add(-24*time.Hour), 0, false)
	snap := Snapshot{Contact: c, OrgSent: 1, SentToday: 2}
	before := *c
	_ = Evaluate(snap, testLimits, now)
	if *c != before {
		t.Error("Evaluate mutated the snapshot contact")
	}
}
