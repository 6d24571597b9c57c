package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Run — итог одного прогона анализа.
type Run struct {
	ID             string
	Model          string
	StartedAt      time.Time
	Dialogs        int
	SuccessRate    float64
	CompleteRate   float64
	BookRate       float64
	AvgTurns       float64
	EmptyResponses int
}

// Turn — пара реплик пользователь/система.
type Turn struct {
	Index  int
	User   string
	System string
}

// Dialogue — один диалог прогона с оценкой.
type Dialogue struct {
	RunID    string
	Index    int
	Goal     string
	Success  bool
	Complete bool
	Booked   bool
	Turns    []Turn
}

type SQLiteStore struct {
	db *sql.DB
}

// DSNForFile строит DSN modernc.org/sqlite для файла с включёнными внешними ключами.
func DSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite report store: empty path")
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path), nil
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite report store: empty dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite report store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			dialogs INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			complete_rate REAL NOT NULL,
			book_rate REAL NOT NULL,
			avg_turns REAL NOT NULL,
			empty_responses INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS dialogues (
			run_id TEXT NOT NULL,
			dialogue_index INTEGER NOT NULL,
			goal TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL,
			complete INTEGER NOT NULL,
			booked INTEGER NOT NULL,
			PRIMARY KEY (run_id, dialogue_index),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			run_id TEXT NOT NULL,
			dialogue_index INTEGER NOT NULL,
			turn_index INTEGER NOT NULL,
			user_text TEXT NOT NULL,
			system_text TEXT NOT NULL,
			PRIMARY KEY (run_id, dialogue_index, turn_index),
			FOREIGN KEY (run_id, dialogue_index) REFERENCES dialogues(run_id, dialogue_index) ON DELETE CASCADE
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite report store: migrate")
		}
	}
	return nil
}

// SaveRun сохраняет или обновляет итог прогона.
func (s *SQLiteStore) SaveRun(ctx context.Context, r Run) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("sqlite report store: empty run id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, model, started_at_ms, dialogs, success_rate, complete_rate, book_rate, avg_turns, empty_responses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			model = excluded.model,
			started_at_ms = excluded.started_at_ms,
			dialogs = excluded.dialogs,
			success_rate = excluded.success_rate,
			complete_rate = excluded.complete_rate,
			book_rate = excluded.book_rate,
			avg_turns = excluded.avg_turns,
			empty_responses = excluded.empty_responses
	`, r.ID, r.Model, r.StartedAt.UnixMilli(), r.Dialogs, r.SuccessRate, r.CompleteRate, r.BookRate, r.AvgTurns, r.EmptyResponses)
	return errors.Wrap(err, "sqlite report store: save run")
}

// GetRun читает итог прогона.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		r  Run
		ms int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, model, started_at_ms, dialogs, success_rate, complete_rate, book_rate, avg_turns, empty_responses
		FROM runs WHERE run_id = ?
	`, id).Scan(&r.ID, &r.Model, &ms, &r.Dialogs, &r.SuccessRate, &r.CompleteRate, &r.BookRate, &r.AvgTurns, &r.EmptyResponses)
	if err != nil {
		return Run{}, errors.Wrapf(err, "sqlite report store: get run %s", id)
	}
	r.StartedAt = time.UnixMilli(ms)
	return r, nil
}

// SaveDialogue сохраняет диалог вместе с репликами в одной транзакции. Прогон должен уже существовать.
func (s *SQLiteStore) SaveDialogue(ctx context.Context, d Dialogue) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite report store: begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM turns WHERE run_id = ? AND dialogue_index = ?`, d.RunID, d.Index); err != nil {
		return errors.Wrap(err, "sqlite report store: clear turns")
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO dialogues (run_id, dialogue_index, goal, success, complete, booked)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, dialogue_index) DO UPDATE SET
			goal = excluded.goal,
			success = excluded.success,
			complete = excluded.complete,
			booked = excluded.booked
	`, d.RunID, d.Index, d.Goal, d.Success, d.Complete, d.Booked); err != nil {
		return errors.Wrap(err, "sqlite report store: save dialogue")
	}
	for _, t := range d.Turns {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO turns (run_id, dialogue_index, turn_index, user_text, system_text)
			VALUES (?, ?, ?, ?, ?)
		`, d.RunID, d.Index, t.Index, t.User, t.System); err != nil {
			return errors.Wrap(err, "sqlite report store: save turn")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "sqlite report store: commit")
	}
	return nil
}

// ListDialogues возвращает диалоги прогона по порядку вместе с репликами.
func (s *SQLiteStore) ListDialogues(ctx context.Context, runID string) ([]Dialogue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dialogue_index, goal, success, complete, booked
		FROM dialogues WHERE run_id = ? ORDER BY dialogue_index
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite report store: list dialogues")
	}
	defer func() { _ = rows.Close() }()

	var out []Dialogue
	for rows.Next() {
		d := Dialogue{RunID: runID}
		if err := rows.Scan(&d.Index, &d.Goal, &d.Success, &d.Complete, &d.Booked); err != nil {
			return nil, errors.Wrap(err, "sqlite report store: scan dialogue")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite report store: list dialogues")
	}
	_ = rows.Close()

	for i := range out {
		turns, err := s.listTurns(ctx, runID, out[i].Index)
		if err != nil {
			return nil, err
		}
		out[i].Turns = turns
	}
	return out, nil
}

func (s *SQLiteStore) listTurns(ctx context.Context, runID string, dialogue int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT turn_index, user_text, system_text
		FROM turns WHERE run_id = ? AND dialogue_index = ? ORDER BY turn_index
	`, runID, dialogue)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite report store: list turns")
	}
	defer func() { _ = rows.Close() }()

	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Index, &t.User, &t.System); err != nil {
			return nil, errors.Wrap(err, "sqlite report store: scan turn")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "sqlite report store: list turns")
}
