package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/models"
	"campaignlottery/internal/store"
)

// rejectingMedium refuses every write.
type rejectingMedium struct{ artifact.Medium }

func (rejectingMedium) Write(context.Context, string, []byte) error { return errBackendDown }

func newTestService(t *testing.T, format artifact.Format) (*LotteryService, *store.InMemory, *artifact.Dir) {
	t.Helper()
	mem := store.NewInMemory()
	dir := artifact.NewDir(t.TempDir())
	service := NewLotteryService(mem, mem, dir, format)

	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	service.newRunID = func() string { return "run-1" }
	return service, mem, dir
}

func TestLotteryService_Register(t *testing.T) {
	ctx := context.Background()
	service, mem, _ := newTestService(t, artifact.FormatJSON)

	t.Run("Test successful registration", func(t *testing.T) {
		a, err := service.Register(ctx, "spring", Application{UserID: "u1", DisplayName: " Alice ", ContactInfo: "alice@example.com", Phone: "090-1111-2222"})
		if err != nil {
			t.Fatalf("Expected no error, but got %v", err)
		}
		if a.Status != models.StatusPending || a.DisplayName != "Alice" || a.DedupeToken == "" {
			t.Errorf("unexpected applicant %+v", a)
		}
		identity, err := mem.GetIdentity(ctx, "u1")
		if err != nil || identity.Email != "alice@example.com" {
			t.Errorf("identity not stored: %+v, %v", identity, err)
		}
	})

	t.Run("Test duplicate phone in the same campaign", func(t *testing.T) {
		_, err := service.Register(ctx, "spring", Application{UserID: "u2", DisplayName: "Bob", Phone: "09011112222"})
		if !errors.Is(err, ErrDuplicatePhone) {
			t.Fatalf("expected ErrDuplicatePhone, got %v", err)
		}
	})

	t.Run("Test same user applying twice", func(t *testing.T) {
		_, err := service.Register(ctx, "spring", Application{UserID: "u1", DisplayName: "Alice", Phone: "09033334444"})
		if !errors.Is(err, ErrAlreadyApplied) {
			t.Fatalf("expected ErrAlreadyApplied, got %v", err)
		}
	})

	t.Run("Test invalid input", func(t *testing.T) {
		bad := []Application{
			{DisplayName: "No User", Phone: "09055556666"},
			{UserID: "u3", Phone: "09055556666"},
			{UserID: "u3", DisplayName: "Carol", Phone: "12345"},
		}
		for _, app := range bad {
			if _, err := service.Register(ctx, "spring", app); !errors.Is(err, ErrInvalidApplication) {
				t.Errorf("Register(%+v) = %v, want ErrInvalidApplication", app, err)
			}
		}
	})
}

// TestLotteryService_DrawLifecycle runs export, draw, finalize and purge for
// four applicants and two winners.
func TestLotteryService_DrawLifecycle(t *testing.T) {
	for _, format := range []artifact.Format{artifact.FormatJSON, artifact.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			service, mem, dir := newTestService(t, format)
			phones := []string{"09000000001", "09000000002", "09000000003", "09000000004"}
			for i, phone := range phones {
				app := Application{UserID: string(rune('a' + i)), DisplayName: "Applicant", Phone: phone}
				if _, err := service.Register(ctx, "summer", app); err != nil {
					t.Fatalf("Register: %v", err)
				}
			}

			exported, err := service.Export(ctx, "summer")
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if counts := models.CountStatuses(exported); counts.Pending != 4 {
				t.Fatalf("exported counts = %+v", counts)
			}

			eligible, err := service.LoadEligible(ctx)
			if err != nil {
				t.Fatalf("LoadEligible: %v", err)
			}
			first, err := service.Draw(eligible, 2, 42)
			if err != nil {
				t.Fatalf("Draw: %v", err)
			}
			again, err := service.Draw(eligible, 2, 42)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids(first.Winners), ids(again.Winners)) {
				t.Errorf("seed 42 drew %v then %v", ids(first.Winners), ids(again.Winners))
			}
			if len(first.Winners) != 2 || len(first.Losers) != 2 {
				t.Fatalf("got %d winners and %d losers", len(first.Winners), len(first.Losers))
			}

			if err := service.WriteOutcome(ctx, "summer", first); err != nil {
				t.Fatalf("WriteOutcome: %v", err)
			}
			loaded, err := service.LoadOutcome(ctx)
			if err != nil {
				t.Fatalf("LoadOutcome: %v", err)
			}
			if loaded.Seed != 42 || loaded.RunID != "run-1" || !reflect.DeepEqual(ids(loaded.Losers), ids(first.Losers)) {
				t.Errorf("loaded outcome %+v does not match the draw", loaded)
			}
			if _, err := dir.Read(ctx, format.FileName(artifact.WinnersName)); err != nil {
				t.Errorf("winners artifact missing: %v", err)
			}

			for run := 1; run <= 2; run++ {
				summary, err := service.Finalize(ctx, loaded)
				if err != nil || summary.Succeeded != 4 || summary.Failed != 0 {
					t.Fatalf("Finalize run %d = %+v, %v", run, summary, err)
				}
			}
			stats, err := service.Stats(ctx, "summer")
			if err != nil {
				t.Fatal(err)
			}
			if stats != (models.StatusCounts{Winners: 2, Losers: 2}) {
				t.Errorf("stats after finalize = %+v", stats)
			}

			// Decided applicants never re-enter a draw.
			if _, err := service.Export(ctx, "summer"); err != nil {
				t.Fatal(err)
			}
			if eligible, err := service.LoadEligible(ctx); err != nil || len(eligible) != 0 {
				t.Errorf("eligible after finalize = %v, %v", ids(eligible), err)
			}

			summary, err := service.PurgeLosers(ctx, Confirmation{Notified: "yes", Destroy: "DELETE"})
			if err != nil || summary.Succeeded != 2 {
				t.Fatalf("PurgeLosers = %+v, %v", summary, err)
			}
			winners, err := service.Winners(ctx, "summer")
			if err != nil {
				t.Fatal(err)
			}
			if len(winners) != 2 || !containsAll(winners, first.Winners) {
				t.Errorf("winners left = %v, want %v", ids(winners), ids(first.Winners))
			}
			for _, l := range first.Losers {
				if _, err := mem.GetIdentity(ctx, l.ID); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("loser identity %s still present", l.ID)
				}
			}
		})
	}
}

func containsAll(got, want []models.Applicant) bool {
	present := map[string]bool{}
	for _, a := range got {
		present[a.ID] = true
	}
	for _, a := range want {
		if !present[a.ID] {
			return false
		}
	}
	return true
}

func TestLotteryService_FinalizeRefusesChangedOutcome(t *testing.T) {
	ctx := context.Background()
	service, mem, _ := newTestService(t, artifact.FormatJSON)
	a := models.Applicant{ID: "u1", CampaignID: "c1", DedupeToken: "t1", Status: models.StatusPending}
	if err := mem.CreateApplicant(ctx, a); err != nil {
		t.Fatal(err)
	}

	if _, err := service.Finalize(ctx, &models.DrawResult{Winners: []models.Applicant{a.WithStatus(models.StatusWinner)}}); err != nil {
		t.Fatal(err)
	}
	summary, err := service.Finalize(ctx, &models.DrawResult{Losers: []models.Applicant{a.WithStatus(models.StatusLoser)}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || !errors.Is(summary.Failures[0].Err, store.ErrInvalidState) {
		t.Errorf("expected the winner to stay a winner, got %+v", summary)
	}
}

// TestLotteryService_DrawRefusesStaleExport re-draws from an export taken
// before the previous draw was finalized.
func TestLotteryService_DrawRefusesStaleExport(t *testing.T) {
	ctx := context.Background()
	service, mem, dir := newTestService(t, artifact.FormatJSON)
	for i, phone := range []string{"09000000001", "09000000002", "09000000003"} {
		app := Application{UserID: string(rune('a' + i)), DisplayName: "Applicant", Phone: phone}
		if _, err := service.Register(ctx, "summer", app); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := service.Export(ctx, "summer"); err != nil {
		t.Fatal(err)
	}
	eligible, err := service.LoadEligible(ctx)
	if err != nil {
		t.Fatal(err)
	}
	result, err := service.Draw(eligible, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := service.WriteOutcome(ctx, "summer", result); err != nil {
		t.Fatal(err)
	}
	if _, err := service.Finalize(ctx, result); err != nil {
		t.Fatal(err)
	}
	before, err := dir.Read(ctx, "losers.json")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.LoadEligible(ctx); !errors.Is(err, ErrStaleExport) {
		t.Fatalf("LoadEligible on a stale export = %v, want ErrStaleExport", err)
	}
	after, err := dir.Read(ctx, "losers.json")
	if err != nil || string(after) != string(before) {
		t.Error("the previous outcome artifacts must be left untouched")
	}

	summary, err := service.PurgeLosers(ctx, Confirmation{Notified: "yes", Destroy: "DELETE"})
	if err != nil || summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("PurgeLosers = %+v, %v", summary, err)
	}
	winner := result.Winners[0].ID
	if _, err := mem.GetApplicant(ctx, winner); err != nil {
		t.Errorf("winner %s was deleted: %v", winner, err)
	}
}

func TestLotteryService_WriteFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewInMemory()
	service := NewLotteryService(mem, mem, rejectingMedium{}, artifact.FormatJSON)

	result := &models.DrawResult{Winners: makeApplicants("a"), Losers: makeApplicants("b")}
	if err := service.WriteOutcome(ctx, "c1", result); !errors.Is(err, ErrWriteFailure) {
		t.Errorf("WriteOutcome = %v, want ErrWriteFailure", err)
	}
	if _, err := service.Export(ctx, "c1"); !errors.Is(err, ErrWriteFailure) {
		t.Errorf("Export = %v, want ErrWriteFailure", err)
	}
}

func TestLotteryService_PurgeNeedsConfirmationFirst(t *testing.T) {
	service, _, _ := newTestService(t, artifact.FormatJSON)
	// No losers artifact exists; the gate must fail before anything is read.
	_, err := service.PurgeLosers(context.Background(), Confirmation{Notified: "no"})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed, got %v", err)
	}
	_, err = service.PurgeAll(context.Background(), "c1", Confirmation{Notified: "yes", Destroy: "yes"})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed, got %v", err)
	}
}
