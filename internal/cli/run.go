// Package cli implements the operator tool that exports applicants, runs the
// draw, records outcomes and purges losers.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/logger"

	"campaignlottery/internal/artifact"
	"campaignlottery/internal/backend"
	"campaignlottery/internal/models"
	"campaignlottery/internal/services"
)

// ErrBatchIncomplete reports a finalize or purge batch with failed items.
var ErrBatchIncomplete = errors.New("batch finished with failures")

// Run executes the command in opts. Prompts read from in.
func Run(ctx context.Context, opts Options, in io.Reader, out, errOut io.Writer) error {
	b, err := backend.Open(ctx, opts.Config, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warningf("close backends: %v", err)
		}
	}()
	format, err := artifact.ParseFormat(opts.Config.Artifacts.Format)
	if err != nil {
		return err
	}
	service := services.NewLotteryService(b.Records, b.Identities, b.Medium, format)
	return runWithService(ctx, opts, service, in, out, errOut)
}

// runWithService contains the command logic with an injectable service.
func runWithService(ctx context.Context, opts Options, service *services.LotteryService, in io.Reader, out, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	p := newPrompter(in, out)
	campaign := opts.Config.Campaign

	switch opts.Command {
	case CommandExport:
		return runExport(ctx, service, campaign, out)
	case CommandDraw:
		return runDraw(ctx, opts, service, p, out, errOut)
	case CommandFinalize:
		result, err := service.LoadOutcome(ctx)
		if err != nil {
			return err
		}
		return finalize(ctx, service, result, out, errOut)
	case CommandPurge:
		return runPurge(ctx, service, p, out, errOut)
	case CommandPurgeAll:
		return runPurgeAll(ctx, service, campaign, p, out, errOut)
	}
	return fmt.Errorf("unknown command %q", opts.Command)
}

func runExport(ctx context.Context, service *services.LotteryService, campaign string, out io.Writer) error {
	records, err := service.Export(ctx, campaign)
	if err != nil {
		return err
	}
	counts := models.CountStatuses(records)
	fmt.Fprintf(out, "Exported %d applicants\n", len(records))
	fmt.Fprintf(out, "  pending: %d\n  winners: %d\n  losers:  %d\n", counts.Pending, counts.Winners, counts.Losers)
	return nil
}

func runDraw(ctx context.Context, opts Options, service *services.LotteryService, p *prompter, out, errOut io.Writer) error {
	eligible, err := service.LoadEligible(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Eligible applicants: %d\n", len(eligible))
	if len(eligible) == 0 {
		return fmt.Errorf("%w: no eligible applicants", services.ErrInvalidWinnerCount)
	}

	count := opts.Count
	if !opts.CountSet {
		answer, err := p.ask(fmt.Sprintf("Number of winners (1-%d): ", len(eligible)))
		if err != nil {
			return err
		}
		if count, err = strconv.Atoi(answer); err != nil {
			return fmt.Errorf("%w: %q is not a number", services.ErrInvalidWinnerCount, answer)
		}
	}

	seed := opts.Seed
	if !opts.SeedSet {
		if seed, err = services.NewSeed(); err != nil {
			return err
		}
	}
	result, err := service.Draw(eligible, count, seed)
	if err != nil {
		return err
	}
	if err := service.WriteOutcome(ctx, opts.Config.Campaign, result); err != nil {
		return err
	}
	fmt.Fprintf(out, "Draw %s complete (seed %d)\n  winners: %d\n  losers:  %d\n",
		result.RunID, result.Seed, len(result.Winners), len(result.Losers))

	if !opts.Finalize {
		fmt.Fprintln(out, "Outcomes not recorded; run finalize to record them")
		return nil
	}
	return finalize(ctx, service, result, out, errOut)
}

func finalize(ctx context.Context, service *services.LotteryService, result *models.DrawResult, out, errOut io.Writer) error {
	summary, err := service.Finalize(ctx, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Recorded outcomes: %d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	return reportFailures(summary, errOut)
}

func runPurge(ctx context.Context, service *services.LotteryService, p *prompter, out, errOut io.Writer) error {
	losers, err := service.Losers(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Losers to delete: %d\n", len(losers))
	if len(losers) == 0 {
		return nil
	}
	confirm, err := p.confirmation()
	if err != nil {
		return err
	}
	summary, err := service.PurgeLosers(ctx, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted: %d\nFailed:  %d\n", summary.Succeeded, summary.Failed)
	return reportFailures(summary, errOut)
}

func runPurgeAll(ctx context.Context, service *services.LotteryService, campaign string, p *prompter, out, errOut io.Writer) error {
	counts, err := service.Stats(ctx, campaign)
	if err != nil {
		return err
	}
	total := counts.Pending + counts.Winners + counts.Losers
	fmt.Fprintf(out, "ALL applicants will be deleted, winners included: %d\n", total)
	if total == 0 {
		return nil
	}
	confirm, err := p.confirmation()
	if err != nil {
		return err
	}
	summary, err := service.PurgeAll(ctx, campaign, confirm)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted: %d\nFailed:  %d\n", summary.Succeeded, summary.Failed)
	return reportFailures(summary, errOut)
}

func reportFailures(summary models.BatchSummary, errOut io.Writer) error {
	for _, f := range summary.Failures {
		fmt.Fprintf(errOut, "  %s: %v\n", f.ID, f.Err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d items failed", ErrBatchIncomplete, summary.Failed, summary.Succeeded+summary.Failed)
	}
	return nil
}

type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	if in == nil {
		in = strings.NewReader("")
	}
	return &prompter{scanner: bufio.NewScanner(in), out: out}
}

// ask prints question and returns the next input line, trimmed.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return "", fmt.Errorf("read answer: %w", io.ErrUnexpectedEOF)
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// confirmation collects both purge answers. The second question is only asked
// after the first is answered yes.
func (p *prompter) confirmation() (services.Confirmation, error) {
	var c services.Confirmation
	var err error
	if c.Notified, err = p.ask("Have all winners been notified? (yes/no): "); err != nil {
		return c, err
	}
	if err := services.CheckNotified(c.Notified); err != nil {
		return c, err
	}
	c.Destroy, err = p.ask(fmt.Sprintf("This cannot be undone. Type %s to continue: ", services.DeletePhrase))
	return c, err
}
