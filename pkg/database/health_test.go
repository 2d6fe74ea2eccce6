package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/database"
	"github.com/sdlc-forge/maestro/pkg/hub"
	testdb "github.com/sdlc-forge/maestro/test/database"
)

func TestHealth(t *testing.T) {
	client := testdb.NewTestClient(t, hub.Migrations)

	status, err := database.Health(context.Background(), client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.GreaterOrEqual(t, status.OpenConnections, 1)
}

func TestHealthUnreachable(t *testing.T) {
	client := testdb.NewTestClient(t, hub.Migrations)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := database.Health(ctx, client.DB())
	require.Error(t, err)
	assert.Equal(t, "unhealthy", status.Status)
}
