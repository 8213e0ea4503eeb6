// Package sqlstore contains the SQL shared by the sqlite and mysql
// history sinks: transaction helpers with retries, error classification,
// and reading and writing of archived runs.
//
// Statements are built with squirrel using "?" placeholders, which both
// MySQL and SQLite understand.
package sqlstore
