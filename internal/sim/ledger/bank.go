package ledger

import (
	"fmt"
	"math"
	"sort"
)

type BankConfig struct {
	StartingRenown int
	UpkeepFloor    int

	// The spend multiplier grows by MultiplierStep per MultiplierPer renown spent, up to MultiplierCap.
	MultiplierStep float64
	MultiplierPer  int
	MultiplierCap  float64
}

func DefaultBankConfig() BankConfig {
	return BankConfig{
		StartingRenown: 1000,
		UpkeepFloor:    200,
		MultiplierStep: 0.1,
		MultiplierPer:  1000,
		MultiplierCap:  3,
	}
}

type Account struct {
	PlayerID   string `json:"player_id"`
	Renown     int    `json:"renown"`
	TotalSpent int    `json:"total_spent"`
}

type InsufficientRenownError struct {
	PlayerID string
	Need     int
	Have     int
	Floor    int
}

func (e *InsufficientRenownError) Error() string {
	return fmt.Sprintf("player %s needs %d renown above the %d floor, has %d", e.PlayerID, e.Need, e.Floor, e.Have)
}

// Bank holds renown accounts. It is not safe for concurrent use; the world
// loop applies all bank operations in its serial phase.
type Bank struct {
	cfg      BankConfig
	accounts map[string]*Account
}

func NewBank(cfg BankConfig) *Bank {
	if cfg.MultiplierPer <= 0 {
		cfg.MultiplierPer = 1000
	}
	if cfg.MultiplierCap < 1 {
		cfg.MultiplierCap = 1
	}
	return &Bank{cfg: cfg, accounts: map[string]*Account{}}
}

func (b *Bank) Config() BankConfig { return b.cfg }

// Open returns the player's account, creating it with the starting renown.
func (b *Bank) Open(playerID string) Account {
	return *b.open(playerID)
}

func (b *Bank) open(playerID string) *Account {
	a := b.accounts[playerID]
	if a == nil {
		a = &Account{PlayerID: playerID, Renown: b.cfg.StartingRenown}
		b.accounts[playerID] = a
	}
	return a
}

func (b *Bank) Get(playerID string) (Account, bool) {
	a := b.accounts[playerID]
	if a == nil {
		return Account{}, false
	}
	return *a, true
}

// Multiplier is non-decreasing because TotalSpent only grows; Refund only
// reverses a spend whose effect never happened.
func (b *Bank) Multiplier(playerID string) float64 {
	spent := 0
	if a := b.accounts[playerID]; a != nil {
		spent = a.TotalSpent
	}
	m := 1 + float64(spent)/float64(b.cfg.MultiplierPer)*b.cfg.MultiplierStep
	return math.Min(b.cfg.MultiplierCap, m)
}

// Quote returns what a spend of base would cost the player right now.
func (b *Bank) Quote(playerID string, base int) int {
	if base <= 0 {
		return 0
	}
	return int(float64(base) * b.Multiplier(playerID))
}

// Spend debits the multiplied cost. Spends may not dip into the upkeep floor.
func (b *Bank) Spend(playerID string, base int) (int, error) {
	a := b.open(playerID)
	cost := b.Quote(playerID, base)
	if a.Renown-cost < b.cfg.UpkeepFloor {
		return cost, &InsufficientRenownError{PlayerID: playerID, Need: cost, Have: a.Renown, Floor: b.cfg.UpkeepFloor}
	}
	a.Renown -= cost
	a.TotalSpent += cost
	return cost, nil
}

func (b *Bank) Credit(playerID string, amount int) {
	if playerID == "" || amount <= 0 {
		return
	}
	b.open(playerID).Renown += amount
}

// Refund returns a cost taken by Spend, including its share of TotalSpent.
func (b *Bank) Refund(playerID string, cost int) {
	if playerID == "" || cost <= 0 {
		return
	}
	a := b.open(playerID)
	a.Renown += cost
	a.TotalSpent -= cost
	if a.TotalSpent < 0 {
		a.TotalSpent = 0
	}
}

// Upkeep charges cost but never takes the account below the floor. Any
// deficit is waived. An account already below the floor is left as is.
func (b *Bank) Upkeep(playerID string, cost int) (charged, waived int) {
	a := b.open(playerID)
	if cost < 0 {
		cost = 0
	}
	charged = cost
	if room := a.Renown - b.cfg.UpkeepFloor; charged > room {
		charged = max(room, 0)
	}
	a.Renown -= charged
	return charged, cost - charged
}

// Accounts returns copies sorted by player id.
func (b *Bank) Accounts() []Account {
	out := make([]Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Restore replaces all accounts (snapshot import).
func (b *Bank) Restore(accounts []Account) {
	b.accounts = make(map[string]*Account, len(accounts))
	for _, a := range accounts {
		if a.PlayerID == "" {
			continue
		}
		cp := a
		b.accounts[a.PlayerID] = &cp
	}
}
