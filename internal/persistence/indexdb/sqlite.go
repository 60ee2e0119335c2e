// Package indexdb is a queryable SQLite read model fed from the tick and audit
// streams. The zstd JSONL logs stay the source of truth; the index may drop
// rows when it falls behind.
package indexdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/tuning"
	"monsterworkshop.game/internal/sim/world"
)

type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot SnapshotRow
}

type TickRow struct {
	Tick    uint64 `db:"tick" json:"tick"`
	Digest  string `db:"digest" json:"digest"`
	Joins   int    `db:"joins" json:"joins"`
	Leaves  int    `db:"leaves" json:"leaves"`
	Intents int    `db:"intents" json:"intents"`
}

type IntentRow struct {
	Tick     uint64 `db:"tick" json:"tick"`
	Seq      int    `db:"seq" json:"seq"`
	PlayerID string `db:"player_id" json:"player_id"`
	Kind     string `db:"kind" json:"kind"`
	Monster  string `db:"monster_id" json:"monster_id"`
	RawJSON  string `db:"intent_json" json:"intent_json"`
}

type AuditRow struct {
	Tick    uint64 `db:"tick" json:"tick"`
	Seq     int    `db:"seq" json:"seq"`
	Zone    string `db:"zone" json:"zone"`
	Actor   string `db:"actor" json:"actor"`
	Action  string `db:"action" json:"action"`
	Entity  string `db:"entity" json:"entity"`
	X       int    `db:"x" json:"x"`
	Y       int    `db:"y" json:"y"`
	Reason  string `db:"reason" json:"reason"`
	RawJSON string `db:"raw_json" json:"raw_json"`
}

type SnapshotRow struct {
	Tick     uint64 `db:"tick" json:"tick"`
	Path     string `db:"path" json:"path"`
	Seed     int64  `db:"seed" json:"seed"`
	Zones    int    `db:"zones" json:"zones"`
	Entities int    `db:"entities" json:"entities"`
	Players  int    `db:"players" json:"players"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS catalogs (
		name TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ticks (
		tick INTEGER PRIMARY KEY,
		digest TEXT NOT NULL,
		joins INTEGER NOT NULL,
		leaves INTEGER NOT NULL,
		intents INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS joins (
		tick INTEGER NOT NULL,
		player_id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (tick, player_id)
	);
	CREATE TABLE IF NOT EXISTS leaves (
		tick INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		PRIMARY KEY (tick, session_id)
	);
	CREATE TABLE IF NOT EXISTS intents (
		tick INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		player_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		monster_id TEXT NOT NULL,
		intent_json TEXT NOT NULL,
		PRIMARY KEY (tick, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_intents_player_tick ON intents(player_id, tick);
	CREATE TABLE IF NOT EXISTS audits (
		tick INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		zone TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		reason TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		PRIMARY KEY (tick, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);
	CREATE INDEX IF NOT EXISTS idx_audits_zone_pos ON audits(zone, x, y, tick);
	CREATE TABLE IF NOT EXISTS snapshots (
		tick INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		seed INTEGER NOT NULL,
		zones INTEGER NOT NULL,
		entities INTEGER NOT NULL,
		players INTEGER NOT NULL
	);`)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts rows discarded because the writer fell behind.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	s.enqueue(req{kind: reqTick, tick: entry})
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	s.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	s.enqueue(req{kind: reqSnapshot, snapshot: SnapshotRow{
		Tick:     snap.Header.Tick,
		Path:     path,
		Seed:     snap.Seed,
		Zones:    len(snap.Zones),
		Entities: snap.EntityCount(),
		Players:  len(snap.Players),
	}})
}

// UpsertCatalogs stores the raw catalog files and the applied tuning so a
// recorded run can be matched to the data it ran with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	digests := cats.Digests()
	for _, name := range []string{"good_types", "monster_types", "skills"} {
		b, err := os.ReadFile(filepath.Join(configDir, name+".json"))
		if err != nil {
			continue
		}
		rows = append(rows, kv{name: name, digest: digests[name], json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint64
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.Beginx()
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.dropped.Add(1)
			continue
		}
		var err error
		switch r.kind {
		case reqTick:
			err = insertTick(tx, r.tick)
			opCount += 1 + len(r.tick.Joins) + len(r.tick.Leaves) + len(r.tick.Intents)

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			raw, _ := json.Marshal(a)
			_, err = tx.NamedExec(`INSERT OR REPLACE INTO audits(tick,seq,zone,actor,action,entity,x,y,reason,raw_json)
				VALUES(:tick,:seq,:zone,:actor,:action,:entity,:x,:y,:reason,:raw_json)`, AuditRow{
				Tick: a.Tick, Seq: auditSeq, Zone: a.Zone, Actor: a.Actor, Action: a.Action,
				Entity: a.Entity, X: a.Pos[0], Y: a.Pos[1], Reason: a.Reason, RawJSON: string(raw),
			})
			auditSeq++
			opCount++

		case reqSnapshot:
			_, err = tx.NamedExec(`INSERT OR REPLACE INTO snapshots(tick,path,seed,zones,entities,players)
				VALUES(:tick,:path,:seed,:zones,:entities,:players)`, r.snapshot)
			opCount++
		}
		if err != nil {
			rollback()
			s.dropped.Add(1)
			continue
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func insertTick(tx *sqlx.Tx, e world.TickLogEntry) error {
	if _, err := tx.NamedExec(`INSERT OR REPLACE INTO ticks(tick,digest,joins,leaves,intents)
		VALUES(:tick,:digest,:joins,:leaves,:intents)`, TickRow{
		Tick: e.Tick, Digest: e.Digest, Joins: len(e.Joins), Leaves: len(e.Leaves), Intents: len(e.Intents),
	}); err != nil {
		return err
	}
	for _, j := range e.Joins {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO joins(tick,player_id,name) VALUES(?,?,?)`, e.Tick, j.PlayerID, j.Name); err != nil {
			return err
		}
	}
	for _, id := range e.Leaves {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO leaves(tick,session_id) VALUES(?,?)`, e.Tick, id); err != nil {
			return err
		}
	}
	for i, in := range e.Intents {
		b, _ := json.Marshal(in.Intent)
		if _, err := tx.NamedExec(`INSERT OR REPLACE INTO intents(tick,seq,player_id,kind,monster_id,intent_json)
			VALUES(:tick,:seq,:player_id,:kind,:monster_id,:intent_json)`, IntentRow{
			Tick: e.Tick, Seq: i, PlayerID: in.PlayerID, Kind: in.Intent.Kind, Monster: in.Intent.MonsterID, RawJSON: string(b),
		}); err != nil {
			return err
		}
	}
	return nil
}
