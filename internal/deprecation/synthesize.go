package deprecation

import (
	"sort"
	"strconv"

	"lancermigrate/internal/patch"
)

// DataPrefix is where scanned data trees live inside a document.
var DataPrefix = patch.Path{"data"}

// Synthesize turns subtree roots into delete operations under prefix. Roots
// nested inside another root are dropped since their ancestor's deletion
// already covers them. Deletes are ordered so that, within one sequence,
// higher indices go first and earlier deletes never shift later ones.
func Synthesize(prefix patch.Path, roots []patch.Path) patch.Payload {
	if len(roots) == 0 {
		return nil
	}

	kept := make([]patch.Path, 0, len(roots))
	for i, root := range roots {
		if len(root) == 0 {
			continue
		}
		covered := false
		for j, other := range roots {
			if i == j || len(other) == 0 {
				continue
			}
			if len(other) < len(root) && root.HasPrefix(other) {
				covered = true
				break
			}
			if other.Equal(root) && j < i {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, root)
		}
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return comparePaths(kept[a], kept[b]) > 0
	})

	payload := make(patch.Payload, 0, len(kept))
	for _, root := range kept {
		payload = append(payload, patch.Delete(prefix.Join(root...)))
	}
	return payload
}

// Remove scans a document's data tree and returns the deletes for it.
func Remove(data map[string]any, suffix string) patch.Payload {
	return Synthesize(DataPrefix, Scan(data, suffix))
}

// comparePaths orders paths segment by segment, numerically when both
// segments are indices.
func comparePaths(a, b patch.Path) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		ai, aErr := strconv.Atoi(a[i])
		bi, bErr := strconv.Atoi(b[i])
		if aErr == nil && bErr == nil {
			if ai < bi {
				return -1
			}
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
