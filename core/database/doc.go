// Package database opens the relational database behind the object store.
//
// It wraps GORM and supports two drivers: MySQL for deployments and SQLite,
// which is what the tests and local runs use with Name set to ":memory:" or a
// file path.
//
// # Schema Inspection
//
// GetTableColumns reports the columns of a table for either driver. The
// migrate command uses it to print what the store created.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "band")
package database
