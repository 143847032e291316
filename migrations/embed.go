// Package migrations carries the cotbridge SQLite schema. Importing it for
// its side effect hands the files to the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/cotbridge/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.Migrations = files
}
