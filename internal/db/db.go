package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// Connect opens the primary postgres database. The pool connects lazily, so
// an unreachable server does not fail here; it surfaces as storage errors on
// first use and the failover store takes over. Ping is attempted only to log
// the situation at startup.
func Connect(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("no database URL configured")
	}

	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	if err = conn.Ping(); err != nil {
		log.Printf("primary database unreachable at startup: %v", err)
	} else {
		log.Println("connected to database")
	}

	return conn, nil
}
