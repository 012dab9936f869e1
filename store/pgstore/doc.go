// Package pgstore implements goIAM.AccountStore on PostgreSQL using sqlx over
// the pgx stdlib driver. The schema ships as embedded goose migrations; Open
// applies them before returning.
package pgstore
