package orchestrator

import "embed"

// Migrations holds the workflow store's embedded schema migrations.
//
//go:embed migrations
var Migrations embed.FS
