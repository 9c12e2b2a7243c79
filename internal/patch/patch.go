// Package patch describes sparse document updates as an ordered list of Set
// and Delete operations addressed by key paths.
package patch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeletePrefix marks a deletion in the legacy sparse encoding: the last path
// segment is prefixed with it and mapped to nil.
const DeletePrefix = "-="

// Path is a sequence of keys. Sequence indices appear as decimal segments.
type Path []string

func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns a copy of the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return append(Path{}, p[:len(p)-1]...)
}

// Join returns a new path with segs appended.
func (p Path) Join(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// HasPrefix reports whether q is a proper or equal prefix of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

type Op struct {
	Kind  OpKind
	Path  Path
	Value any
}

func Set(path Path, value any) Op {
	return Op{Kind: OpSet, Path: path, Value: value}
}

func Delete(path Path) Op {
	return Op{Kind: OpDelete, Path: path}
}

func (o Op) MarshalJSON() ([]byte, error) {
	out := struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value,omitempty"`
	}{
		Op:   o.Kind.String(),
		Path: o.Path.String(),
	}
	if o.Kind == OpSet {
		out.Value = o.Value
	}
	return json.Marshal(out)
}

// Payload is an ordered list of operations against one document. An empty
// payload is a no-op and must not be written.
type Payload []Op

func (p Payload) IsEmpty() bool {
	return len(p) == 0
}

// Merge returns a new payload holding p's operations followed by other's.
func (p Payload) Merge(other Payload) Payload {
	if len(p) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Payload, 0, len(p)+len(other))
	out = append(out, p...)
	return append(out, other...)
}

// Sparse renders the payload in the host's flat key encoding. Deletions
// become `a.b.-=c: nil`.
func (p Payload) Sparse() map[string]any {
	out := make(map[string]any, len(p))
	for _, op := range p {
		switch op.Kind {
		case OpSet:
			out[op.Path.String()] = op.Value
		case OpDelete:
			if len(op.Path) == 0 {
				continue
			}
			key := op.Path.Parent().Join(DeletePrefix + op.Path.Last())
			out[key.String()] = nil
		}
	}
	return out
}
