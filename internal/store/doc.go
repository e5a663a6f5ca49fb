// Package store is a SQLite execution oracle for rendered statements.
//
// Tests and the harness create tables from catalog specs, seed them (often
// with every null/non-null combination of their columns) and run the SQL
// the generator produced for the SQLite dialect. Comparing the returned
// rows with the rows a two-valued evaluation expects shows whether null
// compensation did its job.
//
// Parameters bind by name: the SQLite dialect renders @name placeholders
// and go-sqlite3 accepts sql.Named arguments for them. IR values map to
// driver values as follows:
//
//	IRNull     NULL
//	IRInt      INTEGER
//	IRBool     INTEGER 0/1
//	IRDecimal  REAL (float64)
//	IRString   TEXT
//
// The store holds a single connection; it is not meant for concurrent use.
package store
