package appfs

import "embed"

// FS holds the database migrations, the JSON fixtures and the email templates.
//
//go:embed migrations/*.sql all:assets
var FS embed.FS
