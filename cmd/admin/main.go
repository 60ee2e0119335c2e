package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"monsterworkshop.game/internal/config"
	persistlog "monsterworkshop.game/internal/persistence/log"
	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/persistence/store"
	"monsterworkshop.game/internal/sim/entity"
	"monsterworkshop.game/internal/sim/world"
)

var envCfg config.Admin

func main() {
	if err := config.ParseEnv(&envCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "store":
			storeCmd(os.Args[2:])
			return
		case "debug":
			debugCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", "", "world id (optional; lists its snapshots)")
	_ = fs.Parse(args)

	if *worldID == "" {
		entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
		if err != nil {
			fatal("read", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				fmt.Println(e.Name())
			}
		}
		return
	}
	for _, s := range listSnapshots(filepath.Join(*dataDir, "worlds", *worldID)) {
		fmt.Printf("%d\t%s\n", s.tick, s.path)
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", envCfg.WorldID, "world id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	zoneID := fs.String("zone", "", "print the entities of this zone")
	kind := fs.String("kind", "", "entity kind filter for -zone")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fatal("read snapshot", err)
	}

	if *zoneID == "" {
		fmt.Printf("world=%s tick=%d seed=%d tick_rate=%d day_ticks=%d\n",
			snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.TickRate, snap.DayTicks)
		for _, z := range snap.Zones {
			counts := map[entity.Kind]int{}
			for _, e := range z.Entities {
				counts[e.Kind]++
			}
			fmt.Printf("zone %s %dx%d entities=%d monsters=%d items=%d\n",
				z.ID, z.Width, z.Height, len(z.Entities), counts[entity.KindMonster], counts[entity.KindItem])
		}
		accts := append([]snapshot.PlayerV1(nil), snap.Players...)
		sort.Slice(accts, func(i, j int) bool { return accts[i].Name < accts[j].Name })
		renown := map[string]int{}
		for _, a := range snap.Accounts {
			renown[a.PlayerID] = a.Renown
		}
		for _, p := range accts {
			fmt.Printf("player %s %s renown=%d\n", p.ID, p.Name, renown[p.ID])
		}
		return
	}

	for _, z := range snap.Zones {
		if z.ID != *zoneID {
			continue
		}
		enc := json.NewEncoder(os.Stdout)
		for _, e := range z.Entities {
			if *kind != "" && string(e.Kind) != *kind {
				continue
			}
			_ = enc.Encode(e)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "zone %s not in snapshot\n", *zoneID)
	os.Exit(1)
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", envCfg.WorldID, "world id")
	actor := fs.String("actor", "", "actor filter")
	action := fs.String("action", "", "action filter")
	since := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	err := persistlog.ReadAudit(filepath.Join(*dataDir, "worlds", *worldID), func(e world.AuditEntry) error {
		if e.Tick < *since || (*actor != "" && e.Actor != *actor) || (*action != "" && e.Action != *action) {
			return nil
		}
		return enc.Encode(e)
	})
	if err != nil {
		fatal("audit", err)
	}
}

// restoreCmd loads a snapshot file into the sqlite store so the next server
// start with -resume=store picks it up.
func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	dataDir := fs.String("data", envCfg.DataDir, "runtime data directory")
	worldID := fs.String("world", envCfg.WorldID, "world id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = latestSnapshot(worldDir)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fatal("read snapshot", err)
	}
	st, err := store.Open(filepath.Join(worldDir, "state", "world.sqlite"))
	if err != nil {
		fatal("open store", err)
	}
	defer st.Close()
	if err := st.Save(snap); err != nil {
		fatal("save", err)
	}
	fmt.Printf("restored tick=%d entities=%d into store\n", snap.Header.Tick, snap.EntityCount())
}

type snapFile struct {
	tick uint64
	path string
}

func listSnapshots(worldDir string) []snapFile {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []snapFile
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, snapFile{tick: tick, path: filepath.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	return out
}

func latestSnapshot(worldDir string) string {
	all := listSnapshots(worldDir)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1].path
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
