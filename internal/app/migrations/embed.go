// Package migrations содержит SQL-миграции локальной базы бота
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
