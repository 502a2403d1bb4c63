// Package database opens the bridge's SQLite file and applies its schema
// migrations.
//
// The database holds the forward log (see package audit). Migrations are
// embedded by the top-level migrations package and passed to Migrate:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive only; there is no down path.
package database
