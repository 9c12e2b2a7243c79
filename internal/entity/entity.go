package entity

import (
	"errors"
	"fmt"
)

// Kind is the declared document kind of a catalog or world collection.
type Kind string

const (
	KindActor Kind = "Actor"
	KindItem  Kind = "Item"
	KindScene Kind = "Scene"
)

var ErrUnsupportedKind = errors.New("unsupported entity kind")

// Kinds lists every kind the migrators know how to handle.
func Kinds() []Kind {
	return []Kind{KindActor, KindItem, KindScene}
}

func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindActor, KindItem, KindScene:
		return Kind(value), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, value)
}

// Entity is a closed union over Actor, Item and Scene. The unexported method
// keeps other packages from adding variants, so a type switch over the three
// wrappers is exhaustive.
type Entity interface {
	Kind() Kind
	Doc() Document
	isEntity()
}

type Actor struct{ Document }

type Item struct{ Document }

type Scene struct{ Document }

func (a Actor) Kind() Kind    { return KindActor }
func (a Actor) Doc() Document { return a.Document }
func (Actor) isEntity()       {}

func (i Item) Kind() Kind    { return KindItem }
func (i Item) Doc() Document { return i.Document }
func (Item) isEntity()       {}

func (s Scene) Kind() Kind    { return KindScene }
func (s Scene) Doc() Document { return s.Document }
func (Scene) isEntity()       {}

// Wrap tags a raw document with the kind of the collection it came from.
func Wrap(kind Kind, doc Document) (Entity, error) {
	switch kind {
	case KindActor:
		return Actor{doc}, nil
	case KindItem:
		return Item{doc}, nil
	case KindScene:
		return Scene{doc}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
}
