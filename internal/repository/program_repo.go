package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"auber_controller/internal/program"
)

const (
	upsertProgramSQL = `
		INSERT INTO programs (name, slots, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET slots=excluded.slots, updated_at=excluded.updated_at
	`
	selectProgramSQL = `SELECT name, slots FROM programs WHERE name = ?`
	listProgramsSQL  = `SELECT name, slots FROM programs ORDER BY name ASC`
	deleteProgramSQL = `DELETE FROM programs WHERE name = ?`
)

// ProgramSQLite stores each program as one row with its slots as a JSON array.
type ProgramSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewProgramSQLite(db *sql.DB) *ProgramSQLite {
	return &ProgramSQLite{db: db, now: time.Now}
}

var _ ProgramRepo = (*ProgramSQLite)(nil)

// Save inserts or replaces the program with the same name.
func (r *ProgramSQLite) Save(ctx context.Context, rec program.Record) error {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return fmt.Errorf("save program: %w: empty name", program.ErrInvalidProgram)
	}
	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("marshal slots of %q: %w", name, err)
	}
	if _, err := r.db.ExecContext(ctx, upsertProgramSQL, name, string(slots), r.now().UTC()); err != nil {
		return fmt.Errorf("save program %q: %w", name, err)
	}
	return nil
}

// Get returns (nil, nil) when no program has that name.
func (r *ProgramSQLite) Get(ctx context.Context, name string) (*program.Record, error) {
	name = strings.TrimSpace(name)
	rec, err := scanProgram(r.db.QueryRowContext(ctx, selectProgramSQL, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select program %q: %w", name, err)
	}
	return &rec, nil
}

// List returns every stored program ordered by name.
func (r *ProgramSQLite) List(ctx context.Context) ([]program.Record, error) {
	rows, err := r.db.QueryContext(ctx, listProgramsSQL)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	out := make([]program.Record, 0, 8)
	for rows.Next() {
		rec, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("list programs: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return out, nil
}

// Delete reports whether a row was removed.
func (r *ProgramSQLite) Delete(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, deleteProgramSQL, name)
	if err != nil {
		return false, fmt.Errorf("delete program %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete program %q: %w", name, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(s rowScanner) (program.Record, error) {
	var (
		rec   program.Record
		slots string
	)
	if err := s.Scan(&rec.Name, &slots); err != nil {
		return program.Record{}, err
	}
	if err := json.Unmarshal([]byte(slots), &rec.Slots); err != nil {
		return program.Record{}, fmt.Errorf("decode slots of %q: %w", rec.Name, err)
	}
	return rec, nil
}
