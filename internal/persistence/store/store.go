// Package store keeps the latest world state in SQLite, one row per entity
// keyed by (zone_id, entity_id), so it can be loaded at startup or queried
// without decoding a snapshot file.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
)

// ErrEmpty is returned by Load when nothing has been saved yet.
var ErrEmpty = errors.New("store: no saved world")

type Store struct {
	conn *sqlx.DB
}

type zoneRow struct {
	ID       string `db:"id"`
	Width    int    `db:"width"`
	Height   int    `db:"height"`
	Terrain  string `db:"terrain"`
	NextItem int64  `db:"next_item"`
}

type entityRow struct {
	ZoneID   string `db:"zone_id"`
	EntityID string `db:"entity_id"`
	Ord      int    `db:"ord"`
	Kind     string `db:"kind"`
	OwnerID  string `db:"owner_id"`
	X        int    `db:"x"`
	Y        int    `db:"y"`
	Payload  string `db:"payload_json"`
}

type accountRow struct {
	PlayerID   string `db:"player_id"`
	Renown     int    `db:"renown"`
	TotalSpent int    `db:"total_spent"`
}

type playerRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	ResumeToken string `db:"resume_token"`
}

// MonsterRow is the queryable summary of one stored monster.
type MonsterRow struct {
	ZoneID    string `db:"zone_id" json:"zone_id"`
	EntityID  string `db:"entity_id" json:"entity_id"`
	OwnerID   string `db:"owner_id" json:"owner_id"`
	X         int    `db:"x" json:"x"`
	Y         int    `db:"y" json:"y"`
	Archetype string `db:"archetype" json:"archetype"`
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty store path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		ord INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		terrain TEXT NOT NULL,
		next_item INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		zone_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		kind TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		PRIMARY KEY (zone_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS accounts (
		player_id TEXT PRIMARY KEY,
		renown INTEGER NOT NULL,
		total_spent INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		resume_token TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_owner ON entities(owner_id, kind);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save replaces the stored world with snap.
func (s *Store) Save(snap snapshot.SnapshotV1) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"zones", "entities", "accounts", "players"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for zi, z := range snap.Zones {
		if _, err := tx.Exec(
			`INSERT INTO zones (id, ord, width, height, terrain, next_item) VALUES (?, ?, ?, ?, ?, ?)`,
			z.ID, zi, z.Width, z.Height, z.Terrain, int64(z.NextItem),
		); err != nil {
			return fmt.Errorf("insert zone %s: %w", z.ID, err)
		}
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO entities
		(zone_id, entity_id, ord, kind, owner_id, x, y, payload_json)
		VALUES (:zone_id, :entity_id, :ord, :kind, :owner_id, :x, :y, :payload_json)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, z := range snap.Zones {
		for i, e := range z.Entities {
			b, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode entity %s: %w", e.ID, err)
			}
			row := entityRow{
				ZoneID: z.ID, EntityID: e.ID, Ord: i,
				Kind: string(e.Kind), OwnerID: e.OwnerID,
				X: e.Pos.X, Y: e.Pos.Y, Payload: string(b),
			}
			if _, err := stmt.Exec(row); err != nil {
				return fmt.Errorf("insert entity %s/%s: %w", z.ID, e.ID, err)
			}
		}
	}

	for _, a := range snap.Accounts {
		if _, err := tx.NamedExec(
			`INSERT INTO accounts (player_id, renown, total_spent) VALUES (:player_id, :renown, :total_spent)`,
			accountRow{PlayerID: a.PlayerID, Renown: a.Renown, TotalSpent: a.TotalSpent},
		); err != nil {
			return fmt.Errorf("insert account %s: %w", a.PlayerID, err)
		}
	}
	for _, p := range snap.Players {
		if _, err := tx.NamedExec(
			`INSERT INTO players (id, name, resume_token) VALUES (:id, :name, :resume_token)`,
			playerRow{ID: p.ID, Name: p.Name, ResumeToken: p.ResumeToken},
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}

	hb, _ := json.Marshal(snap.Header)
	digests, _ := json.Marshal(snap.CatalogDigests)
	meta := map[string]string{
		"header":           string(hb),
		"seed":             strconv.FormatInt(snap.Seed, 10),
		"tick_rate_hz":     strconv.Itoa(snap.TickRate),
		"day_ticks":        strconv.Itoa(snap.DayTicks),
		"catalog_digests":  string(digests),
		"next_monster_num": strconv.FormatUint(snap.NextMonsterNum, 10),
		"next_join_num":    strconv.FormatUint(snap.NextJoinNum, 10),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Load rebuilds the last saved world. It returns ErrEmpty on a fresh store.
func (s *Store) Load() (snapshot.SnapshotV1, error) {
	var snap snapshot.SnapshotV1

	var metaRows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := s.conn.Select(&metaRows, "SELECT key, value FROM world_meta"); err != nil {
		return snap, err
	}
	meta := make(map[string]string, len(metaRows))
	for _, r := range metaRows {
		meta[r.Key] = r.Value
	}
	if meta["header"] == "" {
		return snap, ErrEmpty
	}
	if err := json.Unmarshal([]byte(meta["header"]), &snap.Header); err != nil {
		return snap, fmt.Errorf("meta header: %w", err)
	}
	if snap.Header.Version != snapshot.Version {
		return snap, fmt.Errorf("unsupported stored version %d", snap.Header.Version)
	}
	var err error
	if snap.Seed, err = strconv.ParseInt(meta["seed"], 10, 64); err != nil {
		return snap, fmt.Errorf("meta seed: %w", err)
	}
	snap.TickRate, _ = strconv.Atoi(meta["tick_rate_hz"])
	snap.DayTicks, _ = strconv.Atoi(meta["day_ticks"])
	snap.NextMonsterNum, _ = strconv.ParseUint(meta["next_monster_num"], 10, 64)
	snap.NextJoinNum, _ = strconv.ParseUint(meta["next_join_num"], 10, 64)
	if d := meta["catalog_digests"]; d != "" && d != "null" {
		if err := json.Unmarshal([]byte(d), &snap.CatalogDigests); err != nil {
			return snap, fmt.Errorf("meta catalog_digests: %w", err)
		}
	}

	var zones []zoneRow
	if err := s.conn.Select(&zones, "SELECT id, width, height, terrain, next_item FROM zones ORDER BY ord"); err != nil {
		return snap, err
	}
	for _, z := range zones {
		zv := snapshot.ZoneV1{ID: z.ID, Width: z.Width, Height: z.Height, Terrain: z.Terrain, NextItem: uint64(z.NextItem)}
		var rows []entityRow
		if err := s.conn.Select(&rows,
			"SELECT zone_id, entity_id, ord, kind, owner_id, x, y, payload_json FROM entities WHERE zone_id = ? ORDER BY ord",
			z.ID,
		); err != nil {
			return snap, err
		}
		zv.Entities = make([]entity.Entity, 0, len(rows))
		for _, r := range rows {
			var e entity.Entity
			if err := json.Unmarshal([]byte(r.Payload), &e); err != nil {
				return snap, fmt.Errorf("decode entity %s/%s: %w", r.ZoneID, r.EntityID, err)
			}
			zv.Entities = append(zv.Entities, e)
		}
		snap.Zones = append(snap.Zones, zv)
	}

	var accounts []accountRow
	if err := s.conn.Select(&accounts, "SELECT player_id, renown, total_spent FROM accounts ORDER BY player_id"); err != nil {
		return snap, err
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, ledger.Account{PlayerID: a.PlayerID, Renown: a.Renown, TotalSpent: a.TotalSpent})
	}

	var players []playerRow
	if err := s.conn.Select(&players, "SELECT id, name, resume_token FROM players ORDER BY id"); err != nil {
		return snap, err
	}
	for _, p := range players {
		snap.Players = append(snap.Players, snapshot.PlayerV1{ID: p.ID, Name: p.Name, ResumeToken: p.ResumeToken})
	}
	return snap, nil
}

// SavedTick returns the tick of the stored world, or ErrEmpty.
func (s *Store) SavedTick() (uint64, error) {
	var raw string
	err := s.conn.Get(&raw, "SELECT value FROM world_meta WHERE key = 'header'")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEmpty
	}
	if err != nil {
		return 0, err
	}
	var h snapshot.Header
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return 0, err
	}
	return h.Tick, nil
}

// MonstersOf lists the stored monsters owned by playerID.
func (s *Store) MonstersOf(playerID string) ([]MonsterRow, error) {
	var out []MonsterRow
	err := s.conn.Select(&out, `
		SELECT zone_id, entity_id, owner_id, x, y,
			COALESCE(json_extract(payload_json, '$.monster.archetype'), '') AS archetype
		FROM entities
		WHERE owner_id = ? AND kind = ?
		ORDER BY entity_id`,
		playerID, string(entity.KindMonster),
	)
	return out, err
}

// Account returns the stored account of playerID.
func (s *Store) Account(playerID string) (ledger.Account, error) {
	var r accountRow
	if err := s.conn.Get(&r, "SELECT player_id, renown, total_spent FROM accounts WHERE player_id = ?", playerID); err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{PlayerID: r.PlayerID, Renown: r.Renown, TotalSpent: r.TotalSpent}, nil
}
