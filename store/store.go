// Package store is the optional archival sink for externalized slots,
// adapted from silberman-coinkit/data/database.go's Postgres wrapper: same
// sqlx + lib/pq stack, same $USER-substituting connection info and retry-on-
// init pattern, repointed at a single externalized_slots table instead of
// the teacher's blocks/documents schema. Nothing in package consensus or
// package node imports this; it is wired in only by cmd/fedvoted, as an
// optional external collaborator.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rjwalters/fbascp/logutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS externalized_slots (
	slot_index bigint PRIMARY KEY,
	node_id text NOT NULL,
	values jsonb NOT NULL,
	externalized_at timestamptz NOT NULL DEFAULT now()
);
`

// Store archives externalized slot values to Postgres.
type Store struct {
	name     string
	postgres *sqlx.DB
}

// Config names the Postgres connection the same way the teacher's
// data.NewDatabase does: host/port/dbname with an optional explicit user,
// falling back to the OS user ($USER) when unset.
type Config struct {
	Host, Port, DBName, User, Password string
}

func (c Config) connInfo() string {
	u := c.User
	if u == "" {
		if osUser, err := user.Current(); err == nil {
			u = osUser.Username
		}
	}
	parts := []string{
		fmt.Sprintf("host=%s", orDefault(c.Host, "localhost")),
		fmt.Sprintf("port=%s", orDefault(c.Port, "5432")),
		fmt.Sprintf("dbname=%s", orDefault(c.DBName, "fbascp")),
		fmt.Sprintf("user=%s", u),
		"sslmode=disable",
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	return strings.Join(parts, " ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// New connects to Postgres and ensures the archive schema exists, retrying
// schema initialization a few times the way the teacher's
// data.Database.initialize does against a database that may still be
// starting up.
func New(cfg Config) (*Store, error) {
	db := sqlx.MustConnect("postgres", cfg.connInfo())
	s := &Store{name: cfg.DBName, postgres: db}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		_, err := s.postgres.Exec(schema)
		if err == nil {
			return nil
		}
		lastErr = err
		logutil.Errorf("ST", s.name, "schema init attempt %d failed: %v", attempt+1, err)
		time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	}
	return fmt.Errorf("store: could not initialize schema: %w", lastErr)
}

// Archive records a slot's externalized values, keyed by slot index.
func (s *Store) Archive(slotIndex uint64, nodeID string, values interface{}) error {
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("store: marshaling values: %w", err)
	}
	_, err = s.postgres.NamedExec(
		`INSERT INTO externalized_slots (slot_index, node_id, values)
		 VALUES (:slot_index, :node_id, :values)
		 ON CONFLICT (slot_index) DO NOTHING`,
		map[string]interface{}{
			"slot_index": slotIndex,
			"node_id":    nodeID,
			"values":     encoded,
		},
	)
	return err
}

// Get retrieves the archived values for a slot, if present.
func (s *Store) Get(slotIndex uint64) (json.RawMessage, bool, error) {
	var raw json.RawMessage
	err := s.postgres.Get(&raw,
		`SELECT values FROM externalized_slots WHERE slot_index = $1`, slotIndex)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// DropTestData removes all archived rows, for test fixtures only (mirrors
// the teacher's data.DropTestData).
func (s *Store) DropTestData() error {
	_, err := s.postgres.Exec(`DELETE FROM externalized_slots`)
	return err
}
