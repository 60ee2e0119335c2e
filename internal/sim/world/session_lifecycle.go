package world

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/encoding"
)

// playerNamespace derives stable player ids from the join order, so a replay
// of the same joins yields the same ids.
var playerNamespace = uuid.MustParse("6f1c44a2-3f0e-5b7a-9d2e-4c8b1a7e0f31")

const maxNameLen = 32

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "player"
	}
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

func (w *World) buildWelcome(p *player, sessionID string) protocol.WelcomeMsg {
	acct := w.bank.Open(p.ID)
	zoneRefs := make([]protocol.ZoneRef, 0, len(w.zoneOrder))
	for _, id := range w.zoneOrder {
		s := w.zones[id].spec
		zoneRefs = append(zoneRefs, protocol.ZoneRef{ZoneID: s.ID, Name: s.Name, Width: s.Width, Height: s.Height})
	}
	digests := w.catalogs.Digests()
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        p.ID,
		SessionID:       sessionID,
		ResumeToken:     p.ResumeToken,
		Renown:          acct.Renown,
		Tick:            w.tick.Load(),
		Params: protocol.WorldParams{
			TickRateHz:         w.cfg.TickRateHz,
			DayTicks:           w.cfg.DayTicks,
			ContainerCapacity:  w.cfg.ContainerCapacity,
			UpkeepCycleDays:    int(w.cfg.UpkeepCycleTicks / uint64(max(w.cfg.DayTicks, 1))),
			Seed:               w.cfg.Seed,
			MaxRecordingSteps:  w.cfg.MaxRecordingSteps,
			SkillDecayInterval: w.cfg.SkillDecayIntervalTicks,
		},
		Zones:    zoneRefs,
		Monsters: w.ownedMonsters(p.ID),
		Catalogs: protocol.CatalogDigests{
			GoodTypes:    digests["good_types"],
			MonsterTypes: digests["monster_types"],
			Skills:       digests["skills"],
			Zones:        w.layout.Digest,
			Tuning:       w.cfg.TuningDigest,
		},
	}
}

// buildCatalogMsgs renders the static catalogs once; they never change while
// the world runs.
func (w *World) buildCatalogMsgs() []protocol.CatalogMsg {
	if w.catalogMsgs != nil {
		return w.catalogMsgs
	}
	msg := func(name, digest string, data any) protocol.CatalogMsg {
		return protocol.CatalogMsg{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            name,
			Digest:          digest,
			Part:            1,
			TotalParts:      1,
			Data:            data,
		}
	}
	c := w.catalogs
	goods := make([]any, 0, len(c.Goods.Keys))
	for _, k := range c.Goods.Keys {
		goods = append(goods, c.Goods.ByKey[k])
	}
	monsters := make([]any, 0, len(c.Monsters.Keys))
	for _, k := range c.Monsters.Keys {
		monsters = append(monsters, c.Monsters.ByKey[k])
	}
	out := []protocol.CatalogMsg{
		msg("good_types", c.Goods.Digest, goods),
		msg("monster_types", c.Monsters.Digest, monsters),
		msg("skills", c.Skills.Digest, c.Skills),
	}
	for _, id := range w.zoneOrder {
		zr := w.zones[id]
		spawns := zr.spec.SpawnPoints
		out = append(out, msg("zone:"+id, w.layout.Digest, protocol.ZoneLayout{
			ZoneID:      id,
			Name:        zr.spec.Name,
			Width:       zr.spec.Width,
			Height:      zr.spec.Height,
			Encoding:    "RLE",
			Terrain:     encoding.EncodeMask(terrainMask(zr, true)),
			SpawnPoints: spawns,
		}))
	}
	w.catalogMsgs = out
	return out
}

func (w *World) ownedMonsters(playerID string) []string {
	var out []string
	for _, id := range w.zoneOrder {
		for _, mon := range w.zones[id].monsters() {
			if mon.OwnerID == playerID {
				out = append(out, mon.ID)
			}
		}
	}
	return out
}

func (w *World) setOnline(playerID string, online bool) {
	for _, id := range w.zoneOrder {
		for _, mon := range w.zones[id].monsters() {
			if mon.OwnerID == playerID {
				mon.Monster.Online = online
			}
		}
	}
}

func (w *World) openSession(p *player, out chan []byte) string {
	sid := uuid.NewString()
	if out != nil {
		w.clients[sid] = &clientState{PlayerID: p.ID, SessionID: sid, Out: out, synced: map[string]bool{}}
		w.setOnline(p.ID, true)
	}
	return sid
}

// joinPlayer registers a new player. The player id depends only on the join
// sequence and name; the resume token is random.
func (w *World) joinPlayer(name string, out chan []byte) JoinResponse {
	name = normalizeName(name)
	seq := w.nextJoinNum.Add(1)
	p := &player{
		ID:          uuid.NewSHA1(playerNamespace, []byte(fmt.Sprintf("%d:%s", seq, name))).String(),
		Name:        name,
		ResumeToken: uuid.NewString(),
	}
	w.players[p.ID] = p
	w.tokens[p.ResumeToken] = p.ID
	w.bank.Open(p.ID)
	w.accountsChanged[p.ID] = true

	sid := w.openSession(p, out)
	return JoinResponse{Welcome: w.buildWelcome(p, sid), Catalogs: w.buildCatalogMsgs()}
}

// handleAttach resumes a player by token. It runs as soon as the request
// arrives since it does not touch simulated state beyond the online flags.
func (w *World) handleAttach(req AttachRequest) {
	reply := func(r JoinResponse) {
		if req.Resp != nil {
			req.Resp <- r
		}
	}
	token := strings.TrimSpace(req.ResumeToken)
	pid, ok := w.tokens[token]
	p := w.players[pid]
	if token == "" || !ok || p == nil {
		reply(JoinResponse{Err: "unknown resume token"})
		return
	}
	delete(w.tokens, token)
	p.ResumeToken = uuid.NewString()
	w.tokens[p.ResumeToken] = p.ID

	sid := w.openSession(p, req.Out)
	reply(JoinResponse{Welcome: w.buildWelcome(p, sid), Catalogs: w.buildCatalogMsgs()})
}

// handleLeave closes one session. Monsters go offline once their player has
// no session left; they keep running playback.
func (w *World) handleLeave(sessionID string) bool {
	c := w.clients[sessionID]
	if c == nil {
		return false
	}
	delete(w.clients, sessionID)
	if !w.playerOnline(c.PlayerID) {
		w.setOnline(c.PlayerID, false)
	}
	return true
}
