package main

import "database/sql"

// probeTokensTable checks that the api_tokens table exists. Every request is
// authenticated against it, so a missing table means a dead deployment.
// Returns sql.ErrNoRows when the table is absent.
func probeTokensTable(db *sql.DB) error {
	const query = `
		SELECT 1
		FROM information_schema.tables
		WHERE table_name = 'api_tokens'`

	var one int
	return db.QueryRow(query).Scan(&one)
}
