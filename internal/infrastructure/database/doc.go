// Package database provides SQLite connectivity for the aquarium core.
//
// It manages:
//   - Connections with WAL mode and a busy timeout
//   - Read-only connections for inspection tools
//   - Embedded, versioned schema migrations
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package and follow the
// naming scheme YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
