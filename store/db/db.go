package db

import (
	"github.com/pkg/errors"

	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
	"github.com/konusmate/mate/store/db/postgres"
)

// NewDBDriver creates a new database driver based on the profile.
// Postgres is the only supported backend: the memory engine relies on the
// pgvector extension for embedding storage.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	driver, err := postgres.NewDB(profile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres driver")
	}
	return driver, nil
}
