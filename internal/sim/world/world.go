package world

import (
	"fmt"
	"log"
	"sort"
	"sync/atomic"

	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/protocol"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/ledger"
	"monsterworkshop.game/internal/sim/zones"
)

// World owns every zone, the bank and the session table. All state is
// mutated by the loop goroutine only; the exported channel accessors are the
// only concurrency-safe entry points besides Metrics and CurrentTick.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	layout   zones.Config
	logger   *log.Logger

	slotSizes   map[slotKey]entity.Size
	catalogMsgs []protocol.CatalogMsg

	tick atomic.Uint64

	zones     map[string]*zoneRuntime
	zoneOrder []string
	// monsterZone routes intents to the zone currently holding a monster.
	monsterZone map[string]string

	bank *ledger.Bank

	players map[string]*player
	tokens  map[string]string // resume token -> player id
	clients map[string]*clientState

	inbox   chan IntentEnvelope
	join    chan JoinRequest
	attach  chan AttachRequest
	leave   chan string
	debug   chan debugReq
	snapReq chan snapshotReq
	stop    chan struct{}

	paused bool

	nextMonsterNum atomic.Uint64
	nextJoinNum    atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	// accountsChanged collects player ids touched by the serial phase of the current tick.
	accountsChanged map[string]bool

	metrics atomic.Value
}

type player struct {
	ID          string
	Name        string
	ResumeToken string
}

type clientState struct {
	PlayerID  string
	SessionID string
	Out       chan []byte
	// synced lists zones whose full state was already sent.
	synced map[string]bool
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, layout zones.Config) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	cfg.applyDefaults()
	layout.Normalize()
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	w := &World{
		cfg:             cfg,
		catalogs:        cats,
		layout:          layout,
		logger:          cfg.Logger,
		slotSizes:       indexSlotSizes(cats),
		zones:           map[string]*zoneRuntime{},
		monsterZone:     map[string]string{},
		bank:            ledger.NewBank(cfg.Bank),
		players:         map[string]*player{},
		tokens:          map[string]string{},
		clients:         map[string]*clientState{},
		inbox:           make(chan IntentEnvelope, 1024),
		join:            make(chan JoinRequest, 64),
		attach:          make(chan AttachRequest, 64),
		leave:           make(chan string, 64),
		debug:           make(chan debugReq, 16),
		snapReq:         make(chan snapshotReq, 4),
		stop:            make(chan struct{}),
		accountsChanged: map[string]bool{},
	}
	for _, spec := range layout.Zones {
		zr, err := w.bootstrapZone(spec)
		if err != nil {
			return nil, err
		}
		w.zones[spec.ID] = zr
		w.zoneOrder = append(w.zoneOrder, spec.ID)
	}
	sort.Strings(w.zoneOrder)
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) newMonsterID() string {
	n := w.nextMonsterNum.Add(1)
	return fmt.Sprintf("M%06d", n)
}

// ageDays converts the ticks since spawn into whole game days.
func (w *World) ageDays(spawnTick, nowTick uint64) int {
	if nowTick <= spawnTick || w.cfg.DayTicks <= 0 {
		return 0
	}
	return int((nowTick - spawnTick) / uint64(w.cfg.DayTicks))
}
