// Package importer drives a single import run: enumerate a source root,
// resolve name conflicts against the candidate list and the destination,
// then transfer the surviving files one at a time with bounded retry and
// cooperative cancellation.
package importer

import (
	"context"
	"fmt"

	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/logger"
	"github.com/rsakamoto/mediaimport/internal/resolve"
	"github.com/rsakamoto/mediaimport/internal/source"
	"github.com/rsakamoto/mediaimport/internal/store"
)

// State of the transfer engine for one run.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateTransferring State = "transferring"
	StateCompleted    State = "completed"
	StateAborted      State = "aborted"
	StateFailed       State = "failed"
)

const (
	// MaxConsecutiveFailures is the ceiling of back-to-back per-item
	// transfer failures tolerated before the run fails.
	MaxConsecutiveFailures = 5

	// listRemainingBelow is the remaining-item count under which the
	// still-unimported names are logged individually on failure.
	listRemainingBelow = 10
)

// Callbacks is the surface handed to the caller. OnProgress and WantCancel
// are polled once per item boundary; OnComplete is invoked exactly once
// per run on every terminal path. Nil members are allowed.
type Callbacks struct {
	OnProgress func(done, total int)
	WantCancel func() bool
	OnComplete func(Result)
}

// Options configures one import run.
type Options struct {
	// Recursive enumerates nested containers of the root.
	Recursive bool
}

// Service runs imports against one destination store. The caller is
// responsible for not starting two runs against the same store at once.
type Service struct {
	store store.Store
	log   logger.Logger
}

// New creates an import service.
func New(st store.Store, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: st, log: log}
}

// Import starts an import run on a background goroutine and returns
// immediately. The run observes ctx and cb.WantCancel at item boundaries;
// cb.OnComplete receives the final Result exactly once.
func (s *Service) Import(ctx context.Context, root source.Root, opts Options, cb Callbacks) {
	go s.Run(ctx, root, opts, cb)
}

// Run executes an import run synchronously, delivering the Result both to
// cb.OnComplete and as the return value. Any panic escaping a backend is
// converted into a failed Result so the caller always observes a terminal
// callback.
func (s *Service) Run(ctx context.Context, root source.Root, opts Options, cb Callbacks) (result Result) {
	r := &run{
		service: s,
		opts:    opts,
		cb:      cb,
		acc:     &accumulator{},
		state:   StateIdle,
	}

	completed := false
	complete := func(res Result) Result {
		if !completed {
			completed = true
			if cb.OnComplete != nil {
				cb.OnComplete(res)
			}
		}
		return res
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("import run panicked", "panic", rec)
			r.acc.logf("Error - unexpected failure: %v", rec)
			result = complete(r.acc.finalize(StateFailed, false, "Import failed"))
		}
	}()

	return complete(r.execute(ctx, root))
}

// run holds the state of one import invocation.
type run struct {
	service *Service
	opts    Options
	cb      Callbacks
	acc     *accumulator
	state   State

	queue            []source.File
	done             int
	total            int
	consecutiveFails int
}

func (r *run) fail(message string) Result {
	r.state = StateFailed
	return r.acc.finalize(StateFailed, false, message)
}

func (r *run) wantCancel(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return r.cb.WantCancel != nil && r.cb.WantCancel()
}

func (r *run) reportProgress() {
	if r.cb.OnProgress != nil {
		r.cb.OnProgress(r.done, r.total)
	}
}

func (r *run) execute(ctx context.Context, root source.Root) Result {
	r.state = StateValidating
	log := r.service.log

	files, err := root.ListFiles(ctx, r.opts.Recursive)
	if err != nil {
		log.Error("enumeration failed", "source", root.DisplayName(), "error", err)
		r.acc.logf("Error - failed to read source %s: %v", root.DisplayName(), err)
		return r.fail("Error - Invalid source")
	}
	r.acc.logf("%d media files found.", len(files))
	log.Info("enumerated source", "source", root.DisplayName(), "files", len(files))

	if bad := resolve.FindUnnormalized(files); len(bad) > 0 {
		for _, f := range bad {
			r.acc.logf("Invalid file name: %s", f.Name())
		}
		return r.fail("Error - Invalid file name")
	}

	files, droppedDup, conflict, err := resolve.ResolveIntraList(ctx, files)
	if err != nil {
		r.acc.logf("Error - could not compare files: %v", err)
		return r.fail("Error - Comparison failed")
	}
	if conflict {
		r.acc.logf("There are multiple files with the same file name.")
		return r.fail("Error - File name conflict")
	}
	if droppedDup > 0 {
		r.acc.logf("%d files were skipped because they are identical.", droppedDup)
	}

	existing, err := r.service.store.List(ctx)
	if err != nil {
		r.acc.logf("Error - failed to list collection: %v", err)
		return r.fail("Error - Collection unavailable")
	}
	files, skipped, conflicts, err := resolve.ResolveAgainstStore(ctx, files, existing)
	if err != nil {
		r.acc.logf("Error - could not compare files: %v", err)
		return r.fail("Error - Comparison failed")
	}
	if len(conflicts) > 0 {
		r.acc.logf("%d files have the same name as existing media files.", len(conflicts))
		return r.fail("Error - File name conflict")
	}
	if skipped > 0 {
		r.acc.logf("%d files were skipped because they already exist in the collection.", skipped)
	}

	r.queue = files
	r.total = len(files)
	if r.total == 0 {
		r.state = StateCompleted
		r.acc.logf("0 media files were imported.")
		return r.acc.finalize(StateCompleted, true, "Imported 0 media files")
	}

	return r.transfer(ctx)
}

// transfer processes the remaining-file queue strictly one item at a time.
// A failed item is requeued at the back, so a persistently failing item is
// retried interleaved with the other items' attempts rather than
// immediately. Any success resets the consecutive-failure counter.
func (r *run) transfer(ctx context.Context) Result {
	r.state = StateTransferring
	log := r.service.log

	for len(r.queue) > 0 {
		if r.wantCancel(ctx) {
			r.state = StateAborted
			log.Info("import aborted", "done", r.done, "total", r.total)
			r.acc.logf("Aborted import. %d / %d media files were imported.", r.done, r.total)
			return r.acc.finalize(StateAborted, false, "Import aborted")
		}

		item := r.queue[0]
		r.queue = r.queue[1:]

		if err := r.transferOne(ctx, item); err != nil {
			r.consecutiveFails++
			log.Error("transfer failed", "file", item.Name(), "consecutive", r.consecutiveFails, "error", err)
			r.acc.logf("Error - %s: %v", item.Name(), err)

			if r.consecutiveFails >= MaxConsecutiveFailures {
				r.acc.logf("Import failed. %d / %d media files were imported.", r.done, r.total)
				notImported := append([]source.File{item}, r.queue...)
				if len(notImported) < listRemainingBelow {
					for _, f := range notImported {
						r.acc.logf("Not imported: %s", f.Name())
					}
				}
				return r.fail("Import failed")
			}
			r.queue = append(r.queue, item)
		} else {
			r.done++
			r.consecutiveFails = 0
		}
		r.reportProgress()
	}

	r.state = StateCompleted
	log.Info("import completed", "files", r.total)
	r.acc.logf("%d media files were imported.", r.total)
	return r.acc.finalize(StateCompleted, true, fmt.Sprintf("Imported %d media files", r.total))
}

// transferOne fetches one file and hands it to the store. Validation has
// already ruled out every name collision, so the store altering the name
// means the run's premises no longer hold.
func (r *run) transferOne(ctx context.Context, item source.File) error {
	data, err := item.ReadBytes(ctx)
	if err != nil {
		return err
	}
	storedName, err := r.service.store.Write(ctx, item.Name(), data)
	if err != nil {
		return err
	}
	if storedName != item.Name() {
		return fmt.Errorf("%w: %q stored as %q", domain.ErrUnexpectedRename, item.Name(), storedName)
	}
	return nil
}
