// Package gormstore implements goIAM.AccountStore with gorm. Postgres is the
// production driver; SQLite backs local runs and tests.
package gormstore
