package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/models"
)

func TestEligible(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	records := []models.Applicant{
		{ID: "late-dup", CampaignID: "c1", DedupeToken: "t1", AppliedAt: base.Add(2 * time.Hour), Status: models.StatusPending},
		{ID: "first", CampaignID: "c1", DedupeToken: "t1", AppliedAt: base, Status: models.StatusPending},
		{ID: "other-campaign", CampaignID: "c2", DedupeToken: "t1", AppliedAt: base.Add(time.Hour), Status: models.StatusPending},
		{ID: "won", CampaignID: "c1", DedupeToken: "t2", AppliedAt: base, Status: models.StatusWinner},
		{ID: "dup-of-winner", CampaignID: "c1", DedupeToken: "t2", AppliedAt: base.Add(time.Hour), Status: models.StatusPending},
		{ID: "lost", CampaignID: "c1", DedupeToken: "t3", AppliedAt: base, Status: models.StatusLoser},
		{ID: "solo", CampaignID: "c1", DedupeToken: "t4", AppliedAt: base, Status: models.StatusPending},
	}

	eligible, duplicates := Eligible(records)
	if got, want := ids(eligible), []string{"first", "other-campaign", "solo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("eligible = %v, want %v", got, want)
	}
	if got, want := ids(duplicates), []string{"late-dup", "dup-of-winner"}; !reflect.DeepEqual(got, want) {
		t.Errorf("duplicates = %v, want %v", got, want)
	}
}

func TestEligibleEmpty(t *testing.T) {
	eligible, duplicates := Eligible(nil)
	if len(eligible) != 0 || len(duplicates) != 0 {
		t.Errorf("Eligible(nil) = %v, %v", eligible, duplicates)
	}
}

func TestSnapshotFailureIsSourceUnavailable(t *testing.T) {
	fs := newFlakyStore()
	fs.listErr = errBackendDown

	_, err := NewLoader(fs, fs).Snapshot(context.Background(), "c1")
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, errBackendDown) {
		t.Fatalf("expected ErrSourceUnavailable wrapping the cause, got %v", err)
	}
}

func TestEnrichFillsMissingFields(t *testing.T) {
	ctx := context.Background()
	fs := newFlakyStore()
	if err := fs.PutIdentity(ctx, models.Identity{ID: "u1", DisplayName: "Aoi", Email: "aoi@example.com"}); err != nil {
		t.Fatal(err)
	}
	records := []models.Applicant{
		{ID: "u1", DisplayName: "Registered Name"},
		{ID: "ghost"},
	}

	got := NewLoader(fs, fs).Enrich(ctx, records)
	if got[0].DisplayName != "Registered Name" || got[0].ContactInfo != "aoi@example.com" {
		t.Errorf("enriched u1 = %+v", got[0])
	}
	if got[1].DisplayName != "" {
		t.Errorf("missing identity should keep the record unchanged, got %+v", got[1])
	}
	if records[0].ContactInfo != "" {
		t.Error("Enrich must not modify its input")
	}
}

func TestEnrichLogsLookupFailure(t *testing.T) {
	fs := newFlakyStore()
	fs.getIdentErr = errBackendDown
	logs.Reset()

	got := NewLoader(fs, fs).Enrich(context.Background(), []models.Applicant{{ID: "u1"}})
	if got[0].ID != "u1" || got[0].DisplayName != "" {
		t.Errorf("failed lookup should keep the record as is, got %+v", got[0])
	}
	out := logs.String()
	if !strings.Contains(out, "identity lookup for u1 failed: backend unavailable") {
		t.Errorf("lookup failure not logged with its cause:\n%s", out)
	}
	if strings.Contains(out, "%!") {
		t.Errorf("malformed log line:\n%s", out)
	}
}

func TestCheckCurrent(t *testing.T) {
	ctx := context.Background()
	fs := newFlakyStore()
	seeded := fs.seed("c1", 3)
	loader := NewLoader(fs, fs)

	if err := loader.CheckCurrent(ctx, seeded); err != nil {
		t.Fatalf("fresh export: %v", err)
	}

	if err := fs.SetStatus(ctx, "u1", models.StatusWinner); err != nil {
		t.Fatal(err)
	}
	if err := fs.DeleteApplicant(ctx, "u3"); err != nil {
		t.Fatal(err)
	}
	err := loader.CheckCurrent(ctx, seeded)
	if !errors.Is(err, ErrStaleExport) {
		t.Fatalf("expected ErrStaleExport, got %v", err)
	}
	for _, want := range []string{"2 exported applicants", "u1 (winner)", "u3 (deleted)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestLoadArtifactErrors(t *testing.T) {
	ctx := context.Background()
	dir := artifact.NewDir(t.TempDir())

	if _, err := LoadArtifact(ctx, dir, artifact.FormatJSON, "applicants.json"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("missing artifact: expected ErrSourceUnavailable, got %v", err)
	}

	if err := dir.Write(ctx, "applicants.json", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArtifact(ctx, dir, artifact.FormatJSON, "applicants.json"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("malformed artifact: expected ErrSourceUnavailable, got %v", err)
	}
}
