package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Store is the habit/goal-tracking backend: promises, logged actions,
// accountability follows, subscribable templates, reminders, and chat
// history. All access is synchronous.
type Store struct {
	DB *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS promises (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			text TEXT NOT NULL,
			hours_per_week REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			promise_id INTEGER NOT NULL,
			minutes INTEGER NOT NULL,
			note TEXT,
			at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS follows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			followee TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT UNIQUE NOT NULL,
			text TEXT NOT NULL,
			hours_per_week REAL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			promise_id INTEGER NOT NULL,
			interval_seconds INTEGER NOT NULL,
			last_sent DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT,
			tool_call_id TEXT,
			tool_name TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// Promise is one tracked commitment.
type Promise struct {
	ID           int64
	ChatID       string
	Text         string
	HoursPerWeek float64
	CreatedAt    time.Time
}

// PublicID renders the user-visible short identifier, e.g. "P07".
func (p Promise) PublicID() string {
	return FormatPromiseID(p.ID)
}

func FormatPromiseID(id int64) string {
	return fmt.Sprintf("P%02d", id)
}

// ParsePromiseID accepts both the short form ("P07") and a bare number.
func ParsePromiseID(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.ToUpper(trimmed), "P")
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid promise id %q", s)
	}
	return id, nil
}

func (s *Store) AddPromise(chatID, text string, hoursPerWeek float64) (Promise, error) {
	res, err := s.DB.Exec(
		`INSERT INTO promises (chat_id, text, hours_per_week) VALUES (?, ?, ?)`,
		chatID, text, hoursPerWeek,
	)
	if err != nil {
		return Promise{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Promise{}, err
	}
	return Promise{ID: id, ChatID: chatID, Text: text, HoursPerWeek: hoursPerWeek}, nil
}

func (s *Store) GetPromises(chatID string) ([]Promise, error) {
	rows, err := s.DB.Query(
		`SELECT id, text, hours_per_week FROM promises WHERE chat_id = ? ORDER BY id`,
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Promise
	for rows.Next() {
		p := Promise{ChatID: chatID}
		if err := rows.Scan(&p.ID, &p.Text, &p.HoursPerWeek); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SearchPromises matches promise text case-insensitively.
func (s *Store) SearchPromises(chatID, query string) ([]Promise, error) {
	rows, err := s.DB.Query(
		`SELECT id, text, hours_per_week FROM promises
		 WHERE chat_id = ? AND text LIKE ? COLLATE NOCASE ORDER BY id`,
		chatID, "%"+query+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Promise
	for rows.Next() {
		p := Promise{ChatID: chatID}
		if err := rows.Scan(&p.ID, &p.Text, &p.HoursPerWeek); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePromise(chatID string, id int64, text string, hoursPerWeek float64) error {
	res, err := s.DB.Exec(
		`UPDATE promises SET text = COALESCE(NULLIF(?, ''), text), hours_per_week = ?
		 WHERE chat_id = ? AND id = ?`,
		text, hoursPerWeek, chatID, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("promise %s not found", FormatPromiseID(id))
	}
	return err
}

func (s *Store) DeletePromise(chatID string, id int64) error {
	res, err := s.DB.Exec(`DELETE FROM promises WHERE chat_id = ? AND id = ?`, chatID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("promise %s not found", FormatPromiseID(id))
	}
	return err
}

// Action is time logged against a promise.
type Action struct {
	ID        int64
	ChatID    string
	PromiseID int64
	Minutes   int
	Note      string
	At        time.Time
}

func (s *Store) LogAction(chatID string, promiseID int64, minutes int, note string) (Action, error) {
	res, err := s.DB.Exec(
		`INSERT INTO actions (chat_id, promise_id, minutes, note) VALUES (?, ?, ?, ?)`,
		chatID, promiseID, minutes, note,
	)
	if err != nil {
		return Action{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Action{}, err
	}
	return Action{ID: id, ChatID: chatID, PromiseID: promiseID, Minutes: minutes, Note: note, At: time.Now()}, nil
}

func (s *Store) LatestAction(chatID string, promiseID int64) (Action, error) {
	a := Action{ChatID: chatID, PromiseID: promiseID}
	var at string
	err := s.DB.QueryRow(
		`SELECT id, minutes, COALESCE(note, ''), at FROM actions
		 WHERE chat_id = ? AND promise_id = ? ORDER BY at DESC, id DESC LIMIT 1`,
		chatID, promiseID,
	).Scan(&a.ID, &a.Minutes, &a.Note, &at)
	if err != nil {
		return Action{}, err
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", at); perr == nil {
		a.At = t
	}
	return a, nil
}

// Follow is an accountability link: this chat follows another user's
// progress.
type Follow struct {
	ID       int64
	ChatID   string
	Followee string
}

func (s *Store) AddFollow(chatID, followee string) (Follow, error) {
	res, err := s.DB.Exec(
		`INSERT INTO follows (chat_id, followee) VALUES (?, ?)`,
		chatID, followee,
	)
	if err != nil {
		return Follow{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Follow{}, err
	}
	return Follow{ID: id, ChatID: chatID, Followee: followee}, nil
}

func (s *Store) ListFollows(chatID string) ([]Follow, error) {
	rows, err := s.DB.Query(`SELECT id, followee FROM follows WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Follow
	for rows.Next() {
		f := Follow{ChatID: chatID}
		if err := rows.Scan(&f.ID, &f.Followee); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Template is a predefined promise users can subscribe to.
type Template struct {
	ID           int64
	Slug         string
	Text         string
	HoursPerWeek float64
}

func (s *Store) UpsertTemplate(slug, text string, hoursPerWeek float64) error {
	_, err := s.DB.Exec(
		`INSERT INTO templates (slug, text, hours_per_week) VALUES (?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET text = excluded.text, hours_per_week = excluded.hours_per_week`,
		slug, text, hoursPerWeek,
	)
	return err
}

func (s *Store) ListTemplates() ([]Template, error) {
	rows, err := s.DB.Query(`SELECT id, slug, text, hours_per_week FROM templates ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Slug, &t.Text, &t.HoursPerWeek); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTemplate(slug string) (Template, error) {
	var t Template
	err := s.DB.QueryRow(
		`SELECT id, slug, text, hours_per_week FROM templates WHERE slug = ?`, slug,
	).Scan(&t.ID, &t.Slug, &t.Text, &t.HoursPerWeek)
	if err != nil {
		return Template{}, fmt.Errorf("template %q not found", slug)
	}
	return t, nil
}

// Reminder is a periodic nudge about a promise.
type Reminder struct {
	ID              int64
	ChatID          string
	PromiseID       int64
	IntervalSeconds int
}

func (s *Store) AddReminder(chatID string, promiseID int64, intervalSeconds int) (Reminder, error) {
	res, err := s.DB.Exec(
		`INSERT INTO reminders (chat_id, promise_id, interval_seconds, last_sent)
		 VALUES (?, ?, ?, datetime('now', '-365 days'))`,
		chatID, promiseID, intervalSeconds,
	)
	if err != nil {
		return Reminder{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{ID: id, ChatID: chatID, PromiseID: promiseID, IntervalSeconds: intervalSeconds}, nil
}

// DueReminders returns reminders whose interval has elapsed since last_sent.
func (s *Store) DueReminders() ([]Reminder, error) {
	rows, err := s.DB.Query(
		`SELECT id, chat_id, promise_id, interval_seconds FROM reminders
		 WHERE (julianday('now') - julianday(last_sent)) * 86400 >= interval_seconds`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.ChatID, &r.PromiseID, &r.IntervalSeconds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MarkReminderSent(id int64) error {
	_, err := s.DB.Exec(`UPDATE reminders SET last_sent = datetime('now') WHERE id = ?`, id)
	return err
}

// PromiseByID fetches one promise scoped to the chat.
func (s *Store) PromiseByID(chatID string, id int64) (Promise, error) {
	p := Promise{ID: id, ChatID: chatID}
	err := s.DB.QueryRow(
		`SELECT text, hours_per_week FROM promises WHERE chat_id = ? AND id = ?`,
		chatID, id,
	).Scan(&p.Text, &p.HoursPerWeek)
	if err != nil {
		return Promise{}, fmt.Errorf("promise %s not found", FormatPromiseID(id))
	}
	return p, nil
}
