// Package database opens the SQLite file that stores the cotbridge listener
// audit trail and keeps its schema current.
//
//	db, err := database.OpenConfig(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// The schema lives in the top-level migrations package as numbered,
// forward-only SQL files. Importing that package registers them here.
package database
