package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"

	"monsterworkshop.game/internal/sim/entity"
)

// stateDigest hashes everything that determines future ticks. Session state
// and monster online flags are left out so a replay without connections
// reproduces the same digests.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteI64(h, &tmp, w.cfg.Seed)
	digestWriteU64(h, &tmp, w.nextMonsterNum.Load())
	digestWriteU64(h, &tmp, w.nextJoinNum.Load())

	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		digestWriteString(h, id)
		digestWriteU64(h, &tmp, zr.nextItem)
		for _, e := range zr.grid.Entities() {
			b, err := json.Marshal(digestEntity(e))
			if err != nil {
				continue
			}
			h.Write(b)
			h.Write([]byte{0})
		}
	}

	for _, a := range w.bank.Accounts() {
		digestWriteString(h, a.PlayerID)
		digestWriteI64(h, &tmp, int64(a.Renown))
		digestWriteI64(h, &tmp, int64(a.TotalSpent))
	}

	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		digestWriteString(h, id)
		digestWriteString(h, w.players[id].Name)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestEntity(e *entity.Entity) entity.Entity {
	c := *e
	if c.Monster != nil {
		m := *c.Monster
		m.Online = false
		c.Monster = &m
	}
	return c
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteString(h hashWriter, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
