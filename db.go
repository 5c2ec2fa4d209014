// db.go
//
// Store selection for the server process.
//   - DATABASE_PATH=":memory:" or "memory" → map-backed store (lost on restart).
//   - anything else → SQLite file, created and migrated on open.

package main

import (
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle-royale/internal/store"
)

func openStore(path string) (store.Store, error) {
	switch path {
	case ":memory:", "memory":
		log.Warn().Msg("using in-memory store; games will not survive a restart")
		return store.NewMemoryStore(), nil
	}
	st, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("sqlite store ready")
	return st, nil
}
