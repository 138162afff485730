// Package database provides SQLite connectivity and schema migrations for
// mqttdesk.
//
// The database holds broker definitions, saved subscriptions and message
// history. It is opened with WAL journaling, a busy timeout and foreign keys
// enabled, through a single pooled connection.
//
// Migrations are read from an fs.FS (normally the embedded migrations
// package) and applied in version order, one transaction each:
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
// Migration files are named YYYYMMDD_HHMMSS_name.up.sql with a matching
// .down.sql used by MigrateDown.
package database
