// Package database provides test database clients for integration tests.
package database

import (
	"io/fs"
	"testing"

	"github.com/sdlc-forge/maestro/pkg/database"
	"github.com/sdlc-forge/maestro/test/util"
)

// NewTestClient creates a test database client for a service's store.
// In CI (when CI_DATABASE_URL is set): connects to external PostgreSQL
// service container. In local dev: spins up a testcontainer.
// The schema and connections are cleaned up when the test ends.
func NewTestClient(t *testing.T, migrations fs.FS) *database.Client {
	t.Helper()
	db := util.SetupTestDatabase(t, migrations)
	return database.NewClientFromDB(db)
}
