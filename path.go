package pntfs

import "strings"

// PathEntry is one (name, mft slot) link in a resolved path, root
// first. The resolver maintains this chain for path printing and does
// not cache MFT state between calls (spec.md §4.6).
type PathEntry struct {
	Name string
	Slot int
}

// Resolve walks a /-separated path starting from cwd (the current
// working directory's MFT slot). A leading "/" resets the walk to
// root. ".." ascends and fails if already at root. Every component
// but the last is resolved as a directory; wantDir selects whether the
// final component must itself be a directory.
//
// An empty path is a no-op success that resolves to cwd.
func (v *Volume) Resolve(cwd int, path string, wantDir bool) (int, []PathEntry, error) {
	const op = "Resolve"
	if path == "" {
		rec, err := v.Record(cwd)
		if err != nil {
			return 0, nil, err
		}
		return cwd, []PathEntry{{Name: rec.NameString(), Slot: cwd}}, nil
	}

	current := cwd
	chain := v.chainToRoot(cwd)

	parts := strings.Split(path, "/")
	if strings.HasPrefix(path, "/") {
		current = rootSlot
		chain = v.chainToRoot(rootSlot)
		parts = parts[1:]
	}

	for i, part := range parts {
		if part == "" {
			continue
		}
		isLast := i == len(parts)-1
		switch part {
		case ".":
			continue
		case "..":
			if current == rootSlot {
				return 0, nil, newVolumeError(op, KindNotFound, "already at root")
			}
			if len(chain) < 2 {
				return 0, nil, newVolumeError(op, KindNotFound, "already at root")
			}
			chain = chain[:len(chain)-1]
			current = chain[len(chain)-1].Slot
		default:
			wantDirHere := wantDir || !isLast
			slot, err := v.Contains(current, part, wantDirHere)
			if err != nil {
				return 0, nil, newVolumeError(op, KindNotFound, part)
			}
			current = slot
			chain = append(chain, PathEntry{Name: part, Slot: slot})
		}
	}
	return current, chain, nil
}

// chainToRoot is a best-effort (name, slot) pair for the starting
// point of a resolve; the resolver does not track ancestry outside of
// what a single call builds; this seeds the chain with only the start
// node when not root, since there is no parent back-reference to walk
// (spec.md §9: directories don't back-reference their parent).
func (v *Volume) chainToRoot(slot int) []PathEntry {
	rec, err := v.Record(slot)
	if err != nil {
		return nil
	}
	return []PathEntry{{Name: rec.NameString(), Slot: slot}}
}
