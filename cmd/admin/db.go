package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"monsterworkshop.game/internal/persistence/indexdb"
	"monsterworkshop.game/internal/persistence/store"
)

// dbCmd queries the sqlite index: snapshots | ticks | audits | intents.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", envCfg.WorldID, "world id")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (audits)")
	playerID := fs.String("player", "", "player id (intents)")
	from := fs.Uint64("from", 0, "first tick (ticks)")
	to := fs.Uint64("to", ^uint64(0)>>1, "last tick (ticks)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite"))
	if err != nil {
		fatal("open index", err)
	}
	defer idx.Close()

	var out any
	switch q {
	case "snapshots":
		out, err = idx.Snapshots(*limit)
	case "ticks":
		out, err = idx.Ticks(*from, *to, *limit)
	case "audits":
		out, err = idx.AuditsByActor(*actor, *limit)
	case "intents":
		if *playerID == "" {
			fmt.Fprintln(os.Stderr, "missing -player")
			os.Exit(2)
		}
		out, err = idx.IntentsOf(*playerID, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (snapshots|ticks|audits|intents)\n", q)
		os.Exit(2)
	}
	if err != nil {
		fatal(q, err)
	}
	printJSON(out)
}

// storeCmd queries the sqlite entity store: tick | monsters | account.
func storeCmd(args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", envCfg.WorldID, "world id")
	playerID := fs.String("player", "", "player id (monsters, account)")
	_ = fs.Parse(args)

	q := "tick"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	st, err := store.Open(filepath.Join(*dataDir, "worlds", *worldID, "state", "world.sqlite"))
	if err != nil {
		fatal("open store", err)
	}
	defer st.Close()

	var out any
	switch q {
	case "tick":
		var t uint64
		t, err = st.SavedTick()
		out = map[string]uint64{"tick": t}
	case "monsters":
		out, err = st.MonstersOf(*playerID)
	case "account":
		out, err = st.Account(*playerID)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (tick|monsters|account)\n", q)
		os.Exit(2)
	}
	if err != nil {
		fatal(q, err)
	}
	printJSON(out)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
