// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/doitpm/assist/internal/profile"
	"github.com/doitpm/assist/store"
	"github.com/doitpm/assist/store/db/postgres"
	"github.com/doitpm/assist/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}
