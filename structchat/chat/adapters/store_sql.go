package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/db"
)

// SQLTurnStore implements TurnStore on the audit tables created by
// db.Migrate. It serves libsql, sqlite and postgres connections.
type SQLTurnStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLTurnStore creates a store over an open, migrated database of kind.
func NewSQLTurnStore(conn *sql.DB, kind string) *SQLTurnStore {
	return &SQLTurnStore{
		db:       conn,
		postgres: kind == db.KindPostgres,
	}
}

// Store writes the exchange and its turns in one transaction.
func (s *SQLTurnStore) Store(ctx context.Context, rec ports.Record) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO audit_exchanges (id, instruction_id, label, seq_index, answers, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.InstructionID, rec.Label, rec.Index, string(answers), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}

	insertTurn := s.rebind(`
		INSERT INTO audit_turns (exchange_id, position, role, turn_data)
		VALUES (?, ?, ?, ?)
	`)
	for i, turn := range rec.Turns {
		turnJSON, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertTurn, rec.ID, i, string(turn.Role), string(turnJSON)); err != nil {
			return fmt.Errorf("failed to save turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exchange: %w", err)
	}
	return nil
}

// Load returns the exchanges stored under label and index, oldest first.
func (s *SQLTurnStore) Load(ctx context.Context, label string, index int) ([]ports.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, instruction_id, answers, created_at FROM audit_exchanges
		WHERE label = ? AND seq_index = ?
		ORDER BY created_at ASC
	`), label, index)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}

	var records []ports.Record
	for rows.Next() {
		var (
			rec     ports.Record
			answers string
		)
		if err := rows.Scan(&rec.ID, &rec.InstructionID, &answers, &rec.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		rec.Label = label
		rec.Index = index
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating exchanges: %w", err)
	}
	rows.Close()

	// Turns are loaded after the exchange cursor is closed; sqlite runs
	// with a single connection.
	for i := range records {
		turns, err := s.loadTurns(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Turns = turns
	}

	return records, nil
}

func (s *SQLTurnStore) loadTurns(ctx context.Context, exchangeID string) ([]ports.Turn, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT turn_data FROM audit_turns
		WHERE exchange_id = ?
		ORDER BY position ASC
	`), exchangeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var turnJSON string
		if err := rows.Scan(&turnJSON); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		var turn ports.Turn
		if err := json.Unmarshal([]byte(turnJSON), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *SQLTurnStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ensure SQLTurnStore implements the TurnStore interface.
var _ ports.TurnStore = (*SQLTurnStore)(nil)
