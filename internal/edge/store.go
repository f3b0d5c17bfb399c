package edge

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/your-org/skycam/internal/models"
)

// StateStore persists the resident profile and a local capture journal
// in SQLite, so an autonomous edge survives restarts and keeps records
// while the brain is away.
type StateStore struct {
	conn *sql.DB
}

func OpenStateStore(path string) (*StateStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	s := &StateStore{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init state schema: %w", err)
	}
	return s, nil
}

func (s *StateStore) Close() error {
	return s.conn.Close()
}

func (s *StateStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resident_profile (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		profile_id TEXT NOT NULL,
		version TEXT NOT NULL,
		payload TEXT NOT NULL,
		schedules TEXT NOT NULL,
		deployed_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS capture_journal (
		id TEXT PRIMARY KEY,
		schedule_name TEXT,
		profile_id TEXT,
		file_path TEXT NOT NULL,
		settings TEXT NOT NULL,
		bracket_group TEXT,
		bracket_index INTEGER,
		success INTEGER NOT NULL,
		message TEXT,
		captured_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_captured_at ON capture_journal(captured_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveProfile stores the resident profile, replacing any previous row.
func (s *StateStore) SaveProfile(p *models.CaptureProfile, schedules []string) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.conn.Exec(`
		INSERT INTO resident_profile (slot, profile_id, version, payload, schedules, deployed_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			profile_id = excluded.profile_id,
			version = excluded.version,
			payload = excluded.payload,
			schedules = excluded.schedules,
			deployed_at = excluded.deployed_at`,
		p.ID, p.Version, string(payload), strings.Join(schedules, ","), p.DeployedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadProfile returns the persisted resident profile, or (nil, nil, nil)
// when the slot is empty.
func (s *StateStore) LoadProfile() (*models.CaptureProfile, []string, error) {
	var payload, schedules string
	err := s.conn.QueryRow(
		`SELECT payload, schedules FROM resident_profile WHERE slot = 1`,
	).Scan(&payload, &schedules)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}

	var p models.CaptureProfile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	var names []string
	if schedules != "" {
		names = strings.Split(schedules, ",")
	}
	return &p, names, nil
}

// ClearProfile empties the resident slot.
func (s *StateStore) ClearProfile() error {
	if _, err := s.conn.Exec(`DELETE FROM resident_profile WHERE slot = 1`); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}

// LogCapture appends one exposure to the local journal.
func (s *StateStore) LogCapture(res models.CaptureResult) error {
	settings, err := json.Marshal(res.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	success := 0
	if res.Success {
		success = 1
	}
	_, err = s.conn.Exec(`
		INSERT INTO capture_journal
			(id, schedule_name, profile_id, file_path, settings, bracket_group, bracket_index, success, message, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID.String(), res.ScheduleName, res.ProfileID, res.FilePath,
		string(settings), res.BracketGroup.String(), res.BracketIndex,
		success, res.Message, res.CapturedAt)
	if err != nil {
		return fmt.Errorf("log capture: %w", err)
	}
	return nil
}

// JournalCount reports how many captures the journal holds since cutoff.
func (s *StateStore) JournalCount(since time.Time) (int, error) {
	var n int
	err := s.conn.QueryRow(
		`SELECT COUNT(*) FROM capture_journal WHERE captured_at >= ?`, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}
