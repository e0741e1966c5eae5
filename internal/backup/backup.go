// Package backup writes point-in-time snapshots of the FAQ collection and
// rotates them.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/faqs/internal/faqstore"
	"github.com/starford/faqs/internal/storage"
)

const (
	filePrefix = "faqs-"
	timeLayout = "20060102T150405.000000000Z"
)

// Runner takes snapshots of a store into dir (relative to the provider root).
type Runner struct {
	store  *faqstore.Store
	fs     storage.Provider
	dir    string
	keep   int
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a snapshot runner keeping at most keep snapshots.
func NewRunner(store *faqstore.Store, fs storage.Provider, dir string, keep int, logger *slog.Logger) *Runner {
	if keep < 1 {
		keep = 1
	}
	return &Runner{store: store, fs: fs, dir: dir, keep: keep, logger: logger, now: time.Now}
}

// Run writes a snapshot unless the newest one already holds the same
// contents, then prunes old snapshots. It returns the path of the newest
// snapshot.
func (r *Runner) Run() (string, error) {
	data, sum, err := r.store.Snapshot()
	if err != nil {
		return "", fmt.Errorf("backup: snapshot: %w", err)
	}

	existing, err := r.list()
	if err != nil {
		return "", err
	}
	if n := len(existing); n > 0 && existing[n-1].Checksum == sum {
		r.logger.Debug("backup: unchanged, skipped", slog.String("latest", existing[n-1].Path))
		return existing[n-1].Path, nil
	}

	name := path.Join(r.dir, filePrefix+r.now().UTC().Format(timeLayout)+".json")
	if err := r.fs.Write(name, data); err != nil {
		return "", fmt.Errorf("backup: write: %w", err)
	}
	r.logger.Info("backup: snapshot written", slog.String("path", name), slog.Int("bytes", len(data)))

	if err := r.prune(); err != nil {
		return name, err
	}
	return name, nil
}

// list returns existing snapshots oldest first.
func (r *Runner) list() ([]snapshotMeta, error) {
	metas, err := r.fs.List(r.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}
	var out []snapshotMeta
	for _, m := range metas {
		if strings.HasPrefix(path.Base(m.Path), filePrefix) {
			out = append(out, snapshotMeta{Path: m.Path, Checksum: m.Checksum})
		}
	}
	// Provider lists sorted by path and the timestamp layout sorts lexically.
	return out, nil
}

func (r *Runner) prune() error {
	snaps, err := r.list()
	if err != nil {
		return err
	}
	for len(snaps) > r.keep {
		if err := r.fs.Delete(snaps[0].Path); err != nil {
			return fmt.Errorf("backup: prune: %w", err)
		}
		r.logger.Debug("backup: pruned", slog.String("path", snaps[0].Path))
		snaps = snaps[1:]
	}
	return nil
}

type snapshotMeta struct {
	Path     string
	Checksum string
}

// Scheduler runs a Runner on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *slog.Logger
}

// NewScheduler parses spec (standard 5-field cron or descriptors such as
// "@hourly") and prepares a scheduler.
func NewScheduler(spec string, runner *Runner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		runner: runner,
		logger: logger,
	}
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := runner.Run(); err != nil {
			logger.Error("backup: scheduled run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("backup: schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled, then waits for
// a running snapshot to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("backup: scheduler started", slog.Int("entries", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("backup: scheduler stopped")
}
