package indexdb

import (
	"database/sql"
	"errors"
)

// TickDigest returns the digest recorded for tick.
func (s *SQLiteIndex) TickDigest(tick uint64) (string, bool, error) {
	var d string
	err := s.db.Get(&d, `SELECT digest FROM ticks WHERE tick = ?`, tick)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// Ticks lists indexed ticks in [from, to], oldest first.
func (s *SQLiteIndex) Ticks(from, to uint64, limit int) ([]TickRow, error) {
	var out []TickRow
	err := s.db.Select(&out,
		`SELECT tick, digest, joins, leaves, intents FROM ticks WHERE tick BETWEEN ? AND ? ORDER BY tick LIMIT ?`,
		from, to, clampLimit(limit))
	return out, err
}

// IntentsOf lists a player's recorded intents, newest first.
func (s *SQLiteIndex) IntentsOf(playerID string, limit int) ([]IntentRow, error) {
	var out []IntentRow
	err := s.db.Select(&out,
		`SELECT tick, seq, player_id, kind, monster_id, intent_json FROM intents
		WHERE player_id = ? ORDER BY tick DESC, seq DESC LIMIT ?`,
		playerID, clampLimit(limit))
	return out, err
}

// AuditsByActor lists audit rows of actor, newest first. An empty actor
// matches everyone.
func (s *SQLiteIndex) AuditsByActor(actor string, limit int) ([]AuditRow, error) {
	var out []AuditRow
	q := `SELECT tick, seq, zone, actor, action, entity, x, y, reason, raw_json FROM audits`
	args := []any{}
	if actor != "" {
		q += ` WHERE actor = ?`
		args = append(args, actor)
	}
	q += ` ORDER BY tick DESC, seq DESC LIMIT ?`
	args = append(args, clampLimit(limit))
	err := s.db.Select(&out, q, args...)
	return out, err
}

// Snapshots lists recorded snapshot files, newest first.
func (s *SQLiteIndex) Snapshots(limit int) ([]SnapshotRow, error) {
	var out []SnapshotRow
	err := s.db.Select(&out,
		`SELECT tick, path, seed, zones, entities, players FROM snapshots ORDER BY tick DESC LIMIT ?`,
		clampLimit(limit))
	return out, err
}

// LatestSnapshotAtOrBefore finds the newest snapshot not after tick.
func (s *SQLiteIndex) LatestSnapshotAtOrBefore(tick uint64) (SnapshotRow, bool, error) {
	var r SnapshotRow
	err := s.db.Get(&r,
		`SELECT tick, path, seed, zones, entities, players FROM snapshots WHERE tick <= ? ORDER BY tick DESC LIMIT 1`, tick)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	return r, true, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return 100
	}
	if n > 10000 {
		return 10000
	}
	return n
}
