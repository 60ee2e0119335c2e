package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"monsterworkshop.game/internal/persistence/indexdb"
	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/persistence/store"
	"monsterworkshop.game/internal/sim/world"
)

func openIndex(worldDir string, disabled bool) (*indexdb.SQLiteIndex, error) {
	if disabled {
		return nil, nil
	}
	return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
}

func openStore(worldDir string, disabled bool) (*store.Store, error) {
	if disabled {
		return nil, nil
	}
	return store.Open(filepath.Join(worldDir, "state", "world.sqlite"))
}

// multiTickLogger fans each tick out to the JSONL log and the index.
type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(e world.TickLogEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteTick(e)
	}
	if m.b != nil {
		err = errors.Join(err, m.b.WriteTick(e))
	}
	return err
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(e world.AuditEntry) error {
	var err error
	if m.a != nil {
		err = m.a.WriteAudit(e)
	}
	if m.b != nil {
		err = errors.Join(err, m.b.WriteAudit(e))
	}
	return err
}

// snapshotWriter persists every snapshot the world emits: the zstd file, its
// index row and the sqlite entity store.
type snapshotWriter struct {
	worldDir string
	idx      *indexdb.SQLiteIndex
	st       *store.Store
	log      *log.Logger
}

func (s snapshotWriter) run(ctx context.Context, ch <-chan snapshot.SnapshotV1) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			s.write(snap)
		}
	}
}

func (s snapshotWriter) write(snap snapshot.SnapshotV1) {
	path := filepath.Join(s.worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.log.Printf("snapshot write: %v", err)
		return
	}
	if s.idx != nil {
		s.idx.RecordSnapshot(path, snap)
	}
	if s.st != nil {
		if err := s.st.Save(snap); err != nil {
			s.log.Printf("store save: %v", err)
		}
	}
	s.log.Printf("snapshot tick=%d entities=%d", snap.Header.Tick, snap.EntityCount())
}
