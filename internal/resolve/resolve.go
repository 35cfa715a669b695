// Package resolve holds the pure conflict-resolution functions run before
// any transfer. Conflicts are decided strictly by identity-vs-name, never
// by renaming: a medium referenced by exact file name inside authored
// content must keep that name, so ambiguity aborts the run while
// byte-identical duplicates collapse silently.
package resolve

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"github.com/rsakamoto/mediaimport/internal/source"
)

// FindUnnormalized returns the files whose name is not in Unicode NFC
// form. The importer does not rename, so any hit is fatal for the run;
// names must be normalized at the source before importing.
func FindUnnormalized(files []source.File) []source.File {
	var out []source.File
	for _, f := range files {
		if !norm.NFC.IsNormalString(f.Name()) {
			out = append(out, f)
		}
	}
	return out
}

// ResolveIntraList detects name collisions within one candidate list.
// Groups of same-named, content-identical files collapse to the
// earliest-listed representative; dropped reports how many were removed.
// A same-named pair with differing content is a true conflict: conflict is
// returned true and the input is not filtered further.
func ResolveIntraList(ctx context.Context, files []source.File) (remaining []source.File, dropped int, conflict bool, err error) {
	byName := make(map[string]source.File, len(files))
	remaining = make([]source.File, 0, len(files))

	for _, f := range files {
		kept, seen := byName[f.Name()]
		if !seen {
			byName[f.Name()] = f
			remaining = append(remaining, f)
			continue
		}
		same, err := source.Identical(ctx, f, kept)
		if err != nil {
			return nil, 0, false, err
		}
		if !same {
			return nil, 0, true, nil
		}
		dropped++
	}
	return remaining, dropped, false, nil
}

// ResolveAgainstStore compares the candidate list against the files
// already in the destination. Candidates identical to an existing
// same-named file are dropped (skipped counts them); same-named files with
// differing content are returned as conflicts, which the caller treats as
// fatal.
func ResolveAgainstStore(ctx context.Context, files, existing []source.File) (remaining []source.File, skipped int, conflicts []source.File, err error) {
	byName := make(map[string]source.File, len(existing))
	for _, f := range existing {
		if _, ok := byName[f.Name()]; !ok {
			byName[f.Name()] = f
		}
	}

	remaining = make([]source.File, 0, len(files))
	for _, f := range files {
		existing, ok := byName[f.Name()]
		if !ok {
			remaining = append(remaining, f)
			continue
		}
		same, err := source.Identical(ctx, f, existing)
		if err != nil {
			return nil, 0, nil, err
		}
		if same {
			skipped++
			continue
		}
		conflicts = append(conflicts, f)
		remaining = append(remaining, f)
	}
	return remaining, skipped, conflicts, nil
}
