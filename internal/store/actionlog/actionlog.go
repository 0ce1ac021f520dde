package actionlog

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the local journal of executed actions. It feeds the dashboard
// and monitor views; it never stores credentials.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil { return nil, err }
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil { return nil, err }
	db := &DB{sql: d}
	if err := db.migrate(); err != nil { _ = d.Close(); return nil, err }
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  target_user TEXT,
	  tweet_id TEXT,
	  success INTEGER NOT NULL,
	  error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT
	);
	`)
	return err
}

// Action is one journaled action row.
type Action struct {
	TS         time.Time
	Type       string
	TargetUser string
	TweetID    string
	Success    bool
	Error      string
}

// RecordAction journals one executed action.
func (d *DB) RecordAction(ctx context.Context, ts time.Time, typ, targetUser, tweetID string, success bool, errMsg string) error {
	s := 0
	if success { s = 1 }
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type, target_user, tweet_id, success, error) VALUES(?,?,?,?,?,?)`,
		ts.Unix(), typ, targetUser, tweetID, s, errMsg)
	return err
}

// CountSuccessWithin counts successful actions of typ in [start, end).
func (d *DB) CountSuccessWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<? AND type=? AND success=1`,
		start.Unix(), end.Unix(), typ)
	var n int
	if err := row.Scan(&n); err != nil { return 0, err }
	return n, nil
}

// TodayCounts returns today's successful likes and reposts (UTC day).
func (d *DB) TodayCounts(ctx context.Context, now time.Time) (likes, reposts int, err error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	likes, err = d.CountSuccessWithin(ctx, start, end, "like")
	if err != nil { return 0, 0, err }
	reposts, err = d.CountSuccessWithin(ctx, start, end, "repost")
	if err != nil { return 0, 0, err }
	return likes, reposts, nil
}

// ListActions returns actions in [start, end) ordered by time.
func (d *DB) ListActions(ctx context.Context, start, end time.Time) ([]Action, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT ts, type, COALESCE(target_user,''), COALESCE(tweet_id,''), success, COALESCE(error,'') FROM actions WHERE ts>=? AND ts<? ORDER BY ts`,
		start.Unix(), end.Unix())
	if err != nil { return nil, err }
	defer rows.Close()
	var out []Action
	for rows.Next() {
		var ts int64
		var s int
		var a Action
		if err := rows.Scan(&ts, &a.Type, &a.TargetUser, &a.TweetID, &s, &a.Error); err != nil { return nil, err }
		a.TS = time.Unix(ts, 0).UTC()
		a.Success = s == 1
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveCursor stores an opaque cursor value.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns a stored cursor, empty when unset.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key)
	var v sql.NullString
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows { return "", nil }
		return "", err
	}
	return v.String, nil
}
