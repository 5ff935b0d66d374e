package models

import "time"

// Status is the draw state of an applicant.
type Status string

const (
	StatusPending Status = "pending"
	StatusWinner  Status = "winner"
	StatusLoser   Status = "loser"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWinner, StatusLoser:
		return true
	}
	return false
}

// Decided reports whether the draw has already assigned an outcome.
func (s Status) Decided() bool {
	return s == StatusWinner || s == StatusLoser
}

// Applicant represents one registration in a campaign.
// ID is the identity id of the registrant and keys both the record store
// and the identity store.
type Applicant struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaignId,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	ContactInfo string    `json:"contactInfo,omitempty"`
	DedupeToken string    `json:"dedupeToken"`
	AppliedAt   time.Time `json:"appliedAt"`
	Status      Status    `json:"status"`
}

// WithStatus returns a copy of the applicant carrying status.
func (a Applicant) WithStatus(status Status) Applicant {
	a.Status = status
	return a
}

// DrawResult stores the outcome of a single draw: the eligible set split into
// winners and losers, both in post-shuffle order.
type DrawResult struct {
	RunID   string      `json:"runId"`
	Seed    uint64      `json:"seed"`
	DrawnAt time.Time   `json:"drawnAt"`
	Winners []Applicant `json:"winners"`
	Losers  []Applicant `json:"losers"`
}

// DrawSummary is the audit record written next to the outcome artifacts.
type DrawSummary struct {
	RunID       string    `json:"runId"`
	CampaignID  string    `json:"campaignId,omitempty"`
	Seed        uint64    `json:"seed"`
	DrawnAt     time.Time `json:"drawnAt"`
	Eligible    int       `json:"eligible"`
	WinnerCount int       `json:"winnerCount"`
	LoserCount  int       `json:"loserCount"`
}

// Summary builds the audit record for r.
func (r *DrawResult) Summary(campaignID string) DrawSummary {
	return DrawSummary{
		RunID:       r.RunID,
		CampaignID:  campaignID,
		Seed:        r.Seed,
		DrawnAt:     r.DrawnAt,
		Eligible:    len(r.Winners) + len(r.Losers),
		WinnerCount: len(r.Winners),
		LoserCount:  len(r.Losers),
	}
}

// ItemFailure links a failed batch item to its cause.
type ItemFailure struct {
	ID  string
	Err error
}

// BatchSummary reports the outcome of a best-effort batch (purge, finalize).
type BatchSummary struct {
	Succeeded int
	Failed    int
	Failures  []ItemFailure
}

// StatusCounts tallies applicants per status.
type StatusCounts struct {
	Pending int `json:"pending"`
	Winners int `json:"winners"`
	Losers  int `json:"losers"`
}

// CountStatuses tallies applicants per status.
func CountStatuses(applicants []Applicant) StatusCounts {
	var counts StatusCounts
	for _, a := range applicants {
		switch a.Status {
		case StatusPending:
			counts.Pending++
		case StatusWinner:
			counts.Winners++
		case StatusLoser:
			counts.Losers++
		}
	}
	return counts
}

// Identity is the account behind an applicant, as held by the identity store.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
}
