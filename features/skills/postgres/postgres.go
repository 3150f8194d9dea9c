// Package postgres is a skills.Source backed by a PostgreSQL table,
// demonstrating the third named skills storage backend alongside
// filesystem and Redis.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"goa.design/skillsruntime/skills"
)

// Source scans a "skills" table scoped to Namespace. Schema:
//
//	CREATE TABLE skills (
//	    namespace TEXT NOT NULL,
//	    name TEXT NOT NULL,
//	    description TEXT NOT NULL DEFAULT '',
//	    body TEXT NOT NULL,
//	    PRIMARY KEY (namespace, name)
//	);
type Source struct {
	Pool      *pgxpool.Pool
	Namespace string
}

func (s *Source) Scan(ctx context.Context) ([]skills.Metadata, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT name, description, length(body) FROM skills WHERE namespace = $1`, s.Namespace)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}
	defer rows.Close()

	var out []skills.Metadata
	for rows.Next() {
		var m skills.Metadata
		m.Namespace = s.Namespace
		if err := rows.Scan(&m.Name, &m.Description, &m.BodyBytes); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Source) LoadBody(ctx context.Context, namespace, name string) (string, error) {
	var body string
	err := s.Pool.QueryRow(ctx,
		`SELECT body FROM skills WHERE namespace = $1 AND name = $2`, namespace, name).Scan(&body)
	if err != nil {
		return "", fmt.Errorf("postgres: load body: %w", err)
	}
	return body, nil
}
