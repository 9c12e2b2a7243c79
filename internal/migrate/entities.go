package migrate

import (
	"context"
	"errors"
	"fmt"

	"lancermigrate/internal/deprecation"
	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
)

var ErrNoActorLookup = errors.New("scene token needs an actor lookup")

// Rules holds the knobs shared by every entity migrator.
type Rules struct {
	// Suffix marks deprecated leaves. Empty means deprecation.DefaultSuffix.
	Suffix string
}

var DefaultRules = Rules{Suffix: deprecation.DefaultSuffix}

// ItemData returns the deletions for an item's deprecated fields.
func (r Rules) ItemData(item entity.Item) patch.Payload {
	return deprecation.Remove(item.Data, r.Suffix)
}

// ActorData migrates the actor's owned items and then its own fields. Owned
// items are never written on their own: when any of them changes, the whole
// items sequence is replaced with migrated copies. An actor with no items
// collection at all yields an empty payload.
func (r Rules) ActorData(actor entity.Actor) (patch.Payload, error) {
	if actor.Items == nil {
		return nil, nil
	}

	var payload patch.Payload
	items := make([]any, len(actor.Items))
	changed := false
	for i, item := range actor.Items {
		update := r.ItemData(entity.Item{Document: item})
		if update.IsEmpty() {
			items[i] = item.Tree()
			continue
		}
		merged, err := patch.Apply(item.Tree(), update)
		if err != nil {
			return nil, fmt.Errorf("migrating owned item %q: %w", item.Name, err)
		}
		items[i] = merged
		changed = true
	}
	if changed {
		payload = append(payload, patch.Set(patch.Path{"items"}, items))
	}

	return payload.Merge(deprecation.Remove(actor.Data, r.Suffix)), nil
}

// SceneUpdate is the rewritten token sequence of a scene.
type SceneUpdate struct {
	Tokens []entity.Token
}

func (u *SceneUpdate) Payload() patch.Payload {
	if u == nil {
		return nil
	}
	tokens := make([]any, len(u.Tokens))
	for i, token := range u.Tokens {
		tokens[i] = token.Tree()
	}
	return patch.Payload{patch.Set(patch.Path{"tokens"}, tokens)}
}

// SceneData normalizes every token of the scene. Tokens without an actor,
// linked to their actor, or without override data get an empty override.
// Tokens pointing at a missing actor are detached. The remaining overrides
// are migrated as actors layered over the actor they reference. A scene
// without tokens yields nil.
func (r Rules) SceneData(ctx context.Context, scene entity.Scene, actors ActorLookup) (*SceneUpdate, error) {
	if len(scene.Tokens) == 0 {
		return nil, nil
	}

	tokens := make([]entity.Token, len(scene.Tokens))
	for i, original := range scene.Tokens {
		t := original.Clone()

		if t.ActorID == "" || t.ActorLink || !t.HasOverrideData() {
			t.ActorData = map[string]any{}
			tokens[i] = t
			continue
		}

		if actors == nil {
			return nil, fmt.Errorf("token %s: %w", t.ID, ErrNoActorLookup)
		}
		actor, err := actors.LookupActor(ctx, t.ActorID)
		if err != nil {
			return nil, fmt.Errorf("resolving actor %s for token %s: %w", t.ActorID, t.ID, err)
		}
		if actor == nil {
			t.ActorID = ""
			t.ActorData = map[string]any{}
			tokens[i] = t
			continue
		}

		layered, err := entity.FromTree(entity.Merge(actor.Tree(), t.ActorData))
		if err != nil {
			return nil, fmt.Errorf("layering override of token %s: %w", t.ID, err)
		}
		update, err := r.ActorData(entity.Actor{Document: layered})
		if err != nil {
			return nil, fmt.Errorf("migrating override of token %s: %w", t.ID, err)
		}
		if !update.IsEmpty() {
			if t.ActorData, err = patch.Apply(t.ActorData, update); err != nil {
				return nil, fmt.Errorf("applying override update of token %s: %w", t.ID, err)
			}
		}
		tokens[i] = t
	}

	return &SceneUpdate{Tokens: tokens}, nil
}

// ComputeUpdate dispatches to the migrator for the entity's kind.
func (r Rules) ComputeUpdate(ctx context.Context, e entity.Entity, actors ActorLookup) (patch.Payload, error) {
	switch v := e.(type) {
	case entity.Item:
		return r.ItemData(v), nil
	case entity.Actor:
		return r.ActorData(v)
	case entity.Scene:
		update, err := r.SceneData(ctx, v, actors)
		if err != nil {
			return nil, err
		}
		return update.Payload(), nil
	default:
		return nil, fmt.Errorf("computing update: %w: %T", entity.ErrUnsupportedKind, e)
	}
}
