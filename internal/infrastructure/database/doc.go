// Package database provides SQLite connectivity and schema migrations for
// carrierd.
//
// The database holds the event journal. Migrations are supplied as an
// fs.FS (normally the embedded migrations package) and applied in version
// order, each in its own transaction.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a
// default, and every .up.sql ships with a .down.sql.
package database
