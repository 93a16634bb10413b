// Package runner executes a batch of independent work units with bounded
// concurrency, per-unit failure containment, and a report/manifest pair that
// makes every run auditable and resumable.
package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/apexloop/circuitweather/internal/fetcher"
)

// Unit is one independent piece of batch work. R is the stage-specific
// report row type; each callback produces the row recording the outcome.
type Unit[R any] struct {
	// Key identifies the unit in logs.
	Key string

	// OutPath, when non-empty, is the unit's output artifact. With
	// SkipExisting set and the artifact present, the unit is skipped.
	OutPath string

	Run     func(ctx context.Context) (R, error)
	Skipped func() R
	Failed  func(err error) R
}

// Unit statuses as written to stage report rows.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusSkipped   = "SKIPPED"
	StatusFailed    = "FAILED"
)

// Options configures a batch run.
type Options struct {
	Concurrency  int
	SkipExisting bool
	Overwrite    bool
}

// Summary is the outcome of a batch run.
type Summary struct {
	RunID    string `json:"run_id"`
	NUnits   int    `json:"n_units"`
	NOK      int    `json:"n_ok"`
	NKO      int    `json:"n_ko"`
	NSkipped int    `json:"n_skipped"`
	Report   string `json:"report_csv"`
}

// ExitCode maps a summary to the process exit code: 0 when every unit
// succeeded or was skipped, 2 when any unit failed.
func (s Summary) ExitCode() int {
	if s.NKO > 0 {
		return 2
	}
	return 0
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeKO
	outcomeSkipped
)

// Run executes the units, writes the report CSV and the JSON manifest, and
// returns the summary. A unit failure is contained: it is recorded in the
// report and the summary, never propagated as an error. Report rows keep the
// input unit order regardless of completion order.
func Run[R any](ctx context.Context, opts Options, units []Unit[R], reportPath, manifestPath string) (Summary, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	rows := make([]R, len(units))
	outcomes := make([]outcome, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, u := range units {
		g.Go(func() error {
			if opts.SkipExisting && !opts.Overwrite && u.OutPath != "" {
				if _, err := os.Stat(u.OutPath); err == nil {
					zap.L().Info("runner: skip existing",
						zap.String("unit", u.Key),
						zap.String("out", u.OutPath),
					)
					rows[i] = u.Skipped()
					outcomes[i] = outcomeSkipped
					return nil
				}
			}

			row, err := u.Run(gctx)
			if err != nil {
				zap.L().Error("runner: unit failed",
					zap.String("unit", u.Key),
					zap.Error(err),
				)
				rows[i] = u.Failed(err)
				outcomes[i] = outcomeKO
				return nil
			}
			rows[i] = row
			outcomes[i] = outcomeOK
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Units never return errors; this is context cancellation.
		return Summary{}, eris.Wrap(err, "runner: batch")
	}

	sum := Summary{
		RunID:  uuid.NewString(),
		NUnits: len(units),
		Report: reportPath,
	}
	for _, o := range outcomes {
		switch o {
		case outcomeOK:
			sum.NOK++
		case outcomeKO:
			sum.NKO++
		case outcomeSkipped:
			sum.NSkipped++
		}
	}

	if err := fetcher.WriteTable(reportPath, rows); err != nil {
		return sum, eris.Wrap(err, "runner: write report")
	}
	if err := writeManifest(manifestPath, sum); err != nil {
		return sum, err
	}

	zap.L().Info("runner: batch done",
		zap.String("run_id", sum.RunID),
		zap.Int("n_units", sum.NUnits),
		zap.Int("n_ok", sum.NOK),
		zap.Int("n_ko", sum.NKO),
		zap.Int("n_skipped", sum.NSkipped),
	)
	return sum, nil
}

// writeManifest writes the summary as indented JSON, atomically.
func writeManifest(path string, sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return eris.Wrap(err, "runner: marshal manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "runner: create manifest dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "runner: write manifest")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "runner: rename manifest")
	}
	return nil
}
