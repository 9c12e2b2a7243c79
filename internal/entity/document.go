package entity

import (
	"encoding/json"
	"fmt"
)

// Document is one persisted entity. A nil Items slice means the owned-items
// collection is missing altogether; an empty slice means it is present but
// empty. Top-level keys without a field of their own (img, sort, effects...)
// are carried in Extra so rewriting a document never drops them.
type Document struct {
	ID     string
	Name   string
	Type   string
	Data   map[string]any
	Flags  map[string]any
	Items  []Document
	Tokens []Token
	Extra  map[string]any
}

// Token is a scene-embedded reference to an actor. ActorID "" is stored as
// null. Keys the migrators do not care about are carried in Extra.
type Token struct {
	ID        string
	Name      string
	ActorID   string
	ActorLink bool
	ActorData map[string]any
	Extra     map[string]any
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{
		ID:    d.ID,
		Name:  d.Name,
		Type:  d.Type,
		Data:  CopyMap(d.Data),
		Flags: CopyMap(d.Flags),
		Extra: CopyMap(d.Extra),
	}
	if d.Items != nil {
		out.Items = make([]Document, len(d.Items))
		for i, item := range d.Items {
			out.Items[i] = item.Clone()
		}
	}
	if d.Tokens != nil {
		out.Tokens = make([]Token, len(d.Tokens))
		for i, token := range d.Tokens {
			out.Tokens[i] = token.Clone()
		}
	}
	return out
}

// Tree renders the document as a generic mapping, the shape update payload
// paths are addressed against.
func (d Document) Tree() map[string]any {
	tree := make(map[string]any, len(d.Extra)+7)
	for key, value := range d.Extra {
		tree[key] = DeepCopy(value)
	}
	tree["_id"] = d.ID
	tree["data"] = CopyMap(d.Data)
	if d.Data == nil {
		tree["data"] = map[string]any{}
	}
	if d.Name != "" {
		tree["name"] = d.Name
	}
	if d.Type != "" {
		tree["type"] = d.Type
	}
	if d.Flags != nil {
		tree["flags"] = CopyMap(d.Flags)
	}
	if d.Items != nil {
		items := make([]any, len(d.Items))
		for i, item := range d.Items {
			items[i] = item.Tree()
		}
		tree["items"] = items
	}
	if d.Tokens != nil {
		tokens := make([]any, len(d.Tokens))
		for i, token := range d.Tokens {
			tokens[i] = token.Tree()
		}
		tree["tokens"] = tokens
	}
	return tree
}

// FromTree is the inverse of Tree. Unknown top-level keys land in Extra.
func FromTree(tree map[string]any) (Document, error) {
	var doc Document
	var err error
	if doc.ID, err = optionalString(tree, "_id"); err != nil {
		return Document{}, err
	}
	if doc.Name, err = optionalString(tree, "name"); err != nil {
		return Document{}, err
	}
	if doc.Type, err = optionalString(tree, "type"); err != nil {
		return Document{}, err
	}
	if doc.Data, err = optionalMap(tree, "data"); err != nil {
		return Document{}, err
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	if doc.Flags, err = optionalMap(tree, "flags"); err != nil {
		return Document{}, err
	}

	if raw, ok := tree["items"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return Document{}, fmt.Errorf("document %s: items must be a list, got %T", doc.ID, raw)
		}
		doc.Items = make([]Document, 0, len(list))
		for i, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				return Document{}, fmt.Errorf("document %s: item %d must be a mapping", doc.ID, i)
			}
			item, err := FromTree(m)
			if err != nil {
				return Document{}, fmt.Errorf("document %s: item %d: %w", doc.ID, i, err)
			}
			doc.Items = append(doc.Items, item)
		}
	}

	if raw, ok := tree["tokens"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return Document{}, fmt.Errorf("document %s: tokens must be a list, got %T", doc.ID, raw)
		}
		doc.Tokens = make([]Token, 0, len(list))
		for i, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				return Document{}, fmt.Errorf("document %s: token %d must be a mapping", doc.ID, i)
			}
			token, err := TokenFromTree(m)
			if err != nil {
				return Document{}, fmt.Errorf("document %s: token %d: %w", doc.ID, i, err)
			}
			doc.Tokens = append(doc.Tokens, token)
		}
	}

	for key, value := range tree {
		if modeledKeys[key] {
			continue
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]any)
		}
		doc.Extra[key] = DeepCopy(value)
	}

	return doc, nil
}

var modeledKeys = map[string]bool{
	"_id": true, "name": true, "type": true, "data": true,
	"flags": true, "items": true, "tokens": true,
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Tree())
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	doc, err := FromTree(tree)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

func (t Token) Clone() Token {
	return Token{
		ID:        t.ID,
		Name:      t.Name,
		ActorID:   t.ActorID,
		ActorLink: t.ActorLink,
		ActorData: CopyMap(t.ActorData),
		Extra:     CopyMap(t.Extra),
	}
}

// HasOverrideData reports whether the token carries a non-empty data override.
func (t Token) HasOverrideData() bool {
	data, ok := t.ActorData["data"].(map[string]any)
	return ok && len(data) > 0
}

func (t Token) Tree() map[string]any {
	tree := make(map[string]any, len(t.Extra)+5)
	for key, value := range t.Extra {
		tree[key] = DeepCopy(value)
	}
	tree["_id"] = t.ID
	if t.Name != "" {
		tree["name"] = t.Name
	}
	if t.ActorID == "" {
		tree["actorId"] = nil
	} else {
		tree["actorId"] = t.ActorID
	}
	tree["actorLink"] = t.ActorLink
	actorData := CopyMap(t.ActorData)
	if actorData == nil {
		actorData = map[string]any{}
	}
	tree["actorData"] = actorData
	return tree
}

func TokenFromTree(tree map[string]any) (Token, error) {
	var token Token
	for key, value := range tree {
		switch key {
		case "_id":
			s, ok := value.(string)
			if !ok && value != nil {
				return Token{}, fmt.Errorf("token _id must be a string, got %T", value)
			}
			token.ID = s
		case "name":
			s, ok := value.(string)
			if !ok && value != nil {
				return Token{}, fmt.Errorf("token name must be a string, got %T", value)
			}
			token.Name = s
		case "actorId":
			s, ok := value.(string)
			if !ok && value != nil {
				return Token{}, fmt.Errorf("token actorId must be a string, got %T", value)
			}
			token.ActorID = s
		case "actorLink":
			b, ok := value.(bool)
			if !ok && value != nil {
				return Token{}, fmt.Errorf("token actorLink must be a boolean, got %T", value)
			}
			token.ActorLink = b
		case "actorData":
			if value == nil {
				continue
			}
			m, ok := value.(map[string]any)
			if !ok {
				return Token{}, fmt.Errorf("token actorData must be a mapping, got %T", value)
			}
			token.ActorData = CopyMap(m)
		default:
			if token.Extra == nil {
				token.Extra = make(map[string]any)
			}
			token.Extra[key] = DeepCopy(value)
		}
	}
	return token, nil
}

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Tree())
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	token, err := TokenFromTree(tree)
	if err != nil {
		return err
	}
	*t = token
	return nil
}

func optionalString(tree map[string]any, key string) (string, error) {
	value, ok := tree[key]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", key, value)
	}
	return s, nil
}

func optionalMap(tree map[string]any, key string) (map[string]any, error) {
	value, ok := tree[key]
	if !ok || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", key, value)
	}
	return CopyMap(m), nil
}
