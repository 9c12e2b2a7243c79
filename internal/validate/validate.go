package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lancermigrate/internal/deprecation"
	"lancermigrate/internal/entity"
	"lancermigrate/internal/migrate"
	"lancermigrate/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDeprecatedFields = "deprecated_fields"
	codeDanglingToken    = "dangling_token_actor"
	codeProtectedCatalog = "protected_catalog"
	codeUnsupportedKind  = "unsupported_kind"
)

type Issue struct {
	Severity   Severity
	Code       string
	Message    string
	Collection string
	Entity     string
}

type Report struct {
	Issues []Issue
}

// Count returns the number of issues with the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

type Source interface {
	store.Catalogs
	store.World
}

// Run audits every catalog and the world collections without writing
// anything. An empty suffix uses deprecation.DefaultSuffix.
func Run(ctx context.Context, src Source, suffix string) (*Report, error) {
	if src == nil {
		return nil, fmt.Errorf("store is required")
	}
	if suffix == "" {
		suffix = deprecation.DefaultSuffix
	}

	a := auditor{
		suffix: suffix,
		actors: migrate.NewCachedLookup(migrate.WorldActors(src), migrate.DefaultActorCacheSize),
		issues: make([]Issue, 0),
	}

	catalogs, err := src.ListCatalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	for _, catalog := range catalogs {
		kind, err := catalog.Kind()
		if errors.Is(err, entity.ErrUnsupportedKind) {
			a.add(SeverityWarn, codeUnsupportedKind, catalog.Collection, "",
				fmt.Sprintf("catalog holds unsupported entity kind %q", catalog.Metadata.Entity))
			continue
		}
		if catalog.Protected {
			a.add(SeverityError, codeProtectedCatalog, catalog.Collection, "",
				"protected catalog cannot be unlocked for migration")
		}
		docs, err := src.GetDocuments(ctx, catalog.Collection)
		if err != nil {
			return nil, fmt.Errorf("get documents of %s: %w", catalog.Collection, err)
		}
		if err := a.documents(ctx, catalog.Collection, kind, docs); err != nil {
			return nil, err
		}
	}

	for _, kind := range entity.Kinds() {
		docs, err := src.WorldDocuments(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list world %s documents: %w", strings.ToLower(string(kind)), err)
		}
		if err := a.documents(ctx, store.WorldCollection(kind), kind, docs); err != nil {
			return nil, err
		}
	}

	return &Report{Issues: a.issues}, nil
}

type auditor struct {
	suffix string
	actors migrate.ActorLookup
	issues []Issue
}

func (a *auditor) add(severity Severity, code, collection, name, message string) {
	a.issues = append(a.issues, Issue{
		Severity:   severity,
		Code:       code,
		Message:    message,
		Collection: collection,
		Entity:     name,
	})
}

func (a *auditor) documents(ctx context.Context, collection string, kind entity.Kind, docs []entity.Document) error {
	for _, doc := range docs {
		a.deprecated(collection, doc.Name, doc.Data)
		if kind == entity.KindActor {
			for _, item := range doc.Items {
				a.deprecated(collection, doc.Name+" / "+item.Name, item.Data)
			}
		}
		if kind == entity.KindScene {
			if err := a.tokens(ctx, collection, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *auditor) deprecated(collection, name string, data map[string]any) {
	roots := deprecation.Scan(data, a.suffix)
	if len(roots) == 0 {
		return
	}
	paths := make([]string, 0, len(roots))
	for _, root := range roots {
		paths = append(paths, root.String())
	}
	a.add(SeverityWarn, codeDeprecatedFields, collection, name,
		fmt.Sprintf("deprecated fields: %s", strings.Join(paths, ", ")))
}

func (a *auditor) tokens(ctx context.Context, collection string, scene entity.Document) error {
	for _, token := range scene.Tokens {
		if token.ActorID == "" {
			continue
		}
		actor, err := a.actors.LookupActor(ctx, token.ActorID)
		if err != nil {
			return fmt.Errorf("look up actor %s: %w", token.ActorID, err)
		}
		if actor == nil {
			a.add(SeverityWarn, codeDanglingToken, collection, scene.Name,
				fmt.Sprintf("token %q references missing actor %s", token.Name, token.ActorID))
		}
	}
	return nil
}
