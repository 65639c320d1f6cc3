package handlers

import (
	"photo-ingest/internal/database"
	"photo-ingest/internal/ingest"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/startup"
	"photo-ingest/internal/storage"
)

// principalHeader carries the authenticated principal id, supplied by
// the fronting authentication layer.
const principalHeader = "X-Principal-ID"

// maxUploadBytes bounds one multipart submission.
const maxUploadBytes = 64 << 20

type Handlers struct {
	db       *database.Database
	store    storage.ObjectStore
	coord    *ingest.Coordinator
	resolver keys.Resolver
	config   *startup.Config
}

func New(db *database.Database, store storage.ObjectStore, coord *ingest.Coordinator, resolver keys.Resolver, config *startup.Config) *Handlers {
	return &Handlers{
		db:       db,
		store:    store,
		coord:    coord,
		resolver: resolver,
		config:   config,
	}
}
