package patch

import (
	"errors"
	"fmt"
	"strconv"

	"lancermigrate/internal/entity"
)

var (
	ErrEmptyPath    = errors.New("empty patch path")
	ErrNotContainer = errors.New("path crosses a non-container value")
)

// Apply returns a copy of tree with every operation in p applied in order.
// The input tree is never modified. Deleting a path that does not exist is a
// no-op; deleting a sequence element removes it and shifts the rest.
func Apply(tree map[string]any, p Payload) (map[string]any, error) {
	out := entity.CopyMap(tree)
	if out == nil {
		out = map[string]any{}
	}

	for _, op := range p {
		if len(op.Path) == 0 {
			return nil, fmt.Errorf("applying %s: %w", op.Kind, ErrEmptyPath)
		}
		switch op.Kind {
		case OpSet:
			node, err := setIn(out, op.Path, entity.DeepCopy(op.Value))
			if err != nil {
				return nil, fmt.Errorf("setting %s: %w", op.Path, err)
			}
			out = node.(map[string]any)
		case OpDelete:
			out = deleteIn(out, op.Path).(map[string]any)
		default:
			return nil, fmt.Errorf("applying %s: unknown operation", op.Kind)
		}
	}

	return out, nil
}

func setIn(node any, path Path, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	key := path[0]

	switch n := node.(type) {
	case nil:
		return setIn(map[string]any{}, path, value)
	case map[string]any:
		child, err := setIn(n[key], path[1:], value)
		if err != nil {
			return nil, err
		}
		n[key] = child
		return n, nil
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx > len(n) {
			return nil, fmt.Errorf("%w: index %q out of range", ErrNotContainer, key)
		}
		if idx == len(n) {
			n = append(n, nil)
		}
		child, err := setIn(n[idx], path[1:], value)
		if err != nil {
			return nil, err
		}
		n[idx] = child
		return n, nil
	default:
		return nil, fmt.Errorf("%w at %q (%T)", ErrNotContainer, key, node)
	}
}

func deleteIn(node any, path Path) any {
	key := path[0]

	switch n := node.(type) {
	case map[string]any:
		if len(path) == 1 {
			delete(n, key)
			return n
		}
		child, ok := n[key]
		if !ok {
			return n
		}
		n[key] = deleteIn(child, path[1:])
		return n
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(n) {
			return n
		}
		if len(path) == 1 {
			return append(n[:idx], n[idx+1:]...)
		}
		n[idx] = deleteIn(n[idx], path[1:])
		return n
	default:
		return node
	}
}
