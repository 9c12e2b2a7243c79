// Package deprecation finds subtrees of a document flagged as obsolete and
// turns them into delete operations.
//
// A leaf whose key ends with the marker suffix and whose value is exactly
// true flags its parent mapping for removal, not itself:
//
//	data.mech.loadout_deprecated = true  ->  delete data.mech
//
// A marker sitting directly under the scanned root has no parent to remove,
// so it names the sibling key with the suffix stripped:
//
//	data.bar_deprecated = true  ->  delete data.bar
package deprecation

import (
	"sort"
	"strconv"
	"strings"

	"lancermigrate/internal/patch"
)

const DefaultSuffix = "_deprecated"

type Leaf struct {
	Path  patch.Path
	Value any
}

// Leaves walks tree depth first in key order. Sequence indices become
// decimal path segments. Empty mappings and sequences are reported as leaves.
func Leaves(tree map[string]any) []Leaf {
	var leaves []Leaf
	walk(patch.Path{}, tree, &leaves)
	return leaves
}

func walk(prefix patch.Path, node any, leaves *[]Leaf) {
	switch n := node.(type) {
	case map[string]any:
		if len(n) == 0 && len(prefix) > 0 {
			*leaves = append(*leaves, Leaf{Path: prefix, Value: n})
			return
		}
		keys := make([]string, 0, len(n))
		for key := range n {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			walk(prefix.Join(key), n[key], leaves)
		}
	case []any:
		if len(n) == 0 {
			*leaves = append(*leaves, Leaf{Path: prefix, Value: n})
			return
		}
		for i, item := range n {
			walk(prefix.Join(strconv.Itoa(i)), item, leaves)
		}
	default:
		*leaves = append(*leaves, Leaf{Path: prefix, Value: node})
	}
}

// Flatten returns every leaf keyed by its dotted path.
func Flatten(tree map[string]any) map[string]any {
	leaves := Leaves(tree)
	flat := make(map[string]any, len(leaves))
	for _, leaf := range leaves {
		flat[leaf.Path.String()] = leaf.Value
	}
	return flat
}

// Scan returns the deduplicated roots of every subtree flagged for removal,
// relative to tree. Markers set to anything but boolean true are ignored.
func Scan(tree map[string]any, suffix string) []patch.Path {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	var roots []patch.Path
	seen := make(map[string]struct{})
	for _, leaf := range Leaves(tree) {
		last := leaf.Path.Last()
		if !strings.HasSuffix(last, suffix) {
			continue
		}
		if flagged, ok := leaf.Value.(bool); !ok || !flagged {
			continue
		}

		root := leaf.Path.Parent()
		if len(root) == 0 {
			name := strings.TrimSuffix(last, suffix)
			if name == "" {
				continue
			}
			root = patch.Path{name}
		}

		key := root.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}
