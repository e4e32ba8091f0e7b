package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arlide/mural/internal/apperr"
	"github.com/arlide/mural/internal/models"
)

// Record is one durable snapshot: the sanitized canvas contents plus the
// write timestamp in epoch milliseconds.
type Record struct {
	ID      string        `json:"id"`
	Nodes   []models.Note `json:"nodes"`
	Edges   []models.Edge `json:"edges"`
	SavedAt int64         `json:"savedAt"`
}

// Save upserts a snapshot record under id.
func (db *DB) Save(id string, nodes []models.Note, edges []models.Edge, savedAt time.Time) error {
	nodesJSON, err := json.Marshal(nonNil(nodes))
	if err != nil {
		return fmt.Errorf("snapshot: marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(nonNil(edges))
	if err != nil {
		return fmt.Errorf("snapshot: marshal edges: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO snapshots (id, nodes, edges, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nodes    = excluded.nodes,
			edges    = excluded.edges,
			saved_at = excluded.saved_at
	`, id, string(nodesJSON), string(edgesJSON), savedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("snapshot: save %s: %w", id, err)
	}
	return nil
}

// Load reads the snapshot record stored under id. Returns
// apperr.ErrNotFound when no record exists.
func (db *DB) Load(id string) (*Record, error) {
	var nodesJSON, edgesJSON string
	rec := Record{ID: id}
	err := db.conn.QueryRow(
		`SELECT nodes, edges, saved_at FROM snapshots WHERE id = ?`, id,
	).Scan(&nodesJSON, &edgesJSON, &rec.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(nodesJSON), &rec.Nodes); err != nil {
		return nil, fmt.Errorf("snapshot: decode nodes: %w", err)
	}
	if err := json.Unmarshal([]byte(edgesJSON), &rec.Edges); err != nil {
		return nil, fmt.Errorf("snapshot: decode edges: %w", err)
	}
	return &rec, nil
}

// Delete removes the snapshot stored under id. Missing ids are not an error.
func (db *DB) Delete(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("snapshot: delete %s: %w", id, err)
	}
	return nil
}

// Keys returns every stored snapshot id.
func (db *DB) Keys() ([]string, error) {
	rows, err := db.conn.Query(`SELECT id FROM snapshots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
