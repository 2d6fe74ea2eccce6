package hub

import "embed"

// Migrations holds the hub store's embedded schema migrations.
//
//go:embed migrations
var Migrations embed.FS
