// Package memorystorage is the default store: the JSON database without a
// backing file, so all state resets when the process exits.
package memorystorage

import (
	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewInMemory(),
	}, nil
}
