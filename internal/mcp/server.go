package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"lancermigrate/internal/migrate"
	"lancermigrate/internal/store"
)

// Store is the part of the document store the tools read from.
type Store interface {
	store.Catalogs
	store.World
}

type Server struct {
	db       Store
	migrator *migrate.Migrator
	suffix   string
	mcp      *sdk.Server
}

func NewServer(db Store, migrator *migrate.Migrator, version string) *Server {
	s := &Server{
		db:       db,
		migrator: migrator,
		suffix:   migrator.Rules().Suffix,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "lancermigrate",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
