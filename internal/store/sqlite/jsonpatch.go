package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"lancermigrate/internal/patch"
)

var pathEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`)

// jsonPath renders p in gjson/sjson syntax. Numeric segments address
// sequence elements.
func jsonPath(p patch.Path) string {
	segs := make([]string, len(p))
	for i, seg := range p {
		segs[i] = pathEscaper.Replace(seg)
	}
	return strings.Join(segs, ".")
}

// applyPayload applies p to the JSON document text and returns the result.
func applyPayload(doc string, p patch.Payload) (string, error) {
	for _, op := range p {
		if len(op.Path) == 0 {
			return "", fmt.Errorf("applying %s: %w", op.Kind, patch.ErrEmptyPath)
		}
		path := jsonPath(op.Path)

		switch op.Kind {
		case patch.OpSet:
			raw, err := json.Marshal(op.Value)
			if err != nil {
				return "", fmt.Errorf("encoding value for %s: %w", op.Path, err)
			}
			doc, err = sjson.SetRaw(doc, path, string(raw))
			if err != nil {
				return "", fmt.Errorf("setting %s: %w", op.Path, err)
			}
		case patch.OpDelete:
			if !gjson.Get(doc, path).Exists() {
				continue
			}
			var err error
			doc, err = sjson.Delete(doc, path)
			if err != nil {
				return "", fmt.Errorf("deleting %s: %w", op.Path, err)
			}
		default:
			return "", fmt.Errorf("applying %s: unknown operation", op.Kind)
		}
	}
	return doc, nil
}
