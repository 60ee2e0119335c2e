package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"monsterworkshop.game/internal/config"
	persistlog "monsterworkshop.game/internal/persistence/log"
	"monsterworkshop.game/internal/persistence/snapshot"
	"monsterworkshop.game/internal/persistence/store"
	"monsterworkshop.game/internal/sim/catalogs"
	"monsterworkshop.game/internal/sim/tuning"
	"monsterworkshop.game/internal/sim/world"
	"monsterworkshop.game/internal/sim/zones"
	"monsterworkshop.game/internal/transport/observer"
	"monsterworkshop.game/internal/transport/ws"
)

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := config.LoadServer()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	var (
		addr       = flag.String("addr", envCfg.Addr, "http listen address")
		worldID    = flag.String("world", envCfg.WorldID, "world id")
		seed       = flag.Int64("seed", envCfg.Seed, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", envCfg.ConfigDir, "config directory")
		dataDir    = flag.String("data", envCfg.DataDir, "runtime data directory")
		tuningPath = flag.String("tuning", envCfg.TuningPath, "path to tuning.yaml (default: <configs>/tuning.yaml)")
		zonesPath  = flag.String("zones", envCfg.ZonesPath, "path to zones.yaml (default: <configs>/zones.yaml)")
		resumeFrom = flag.String("resume", envCfg.ResumeFrom, "startup source: snapshot, store or none")
		snapPath   = flag.String("snapshot", "", "path to snapshot to load (overrides -resume)")
		disableDB  = flag.Bool("disable_db", envCfg.DisableIndex, "disable the sqlite index")
		noStore    = flag.Bool("disable_store", envCfg.DisableStore, "disable the sqlite entity store")
	)
	flag.Parse()

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(orDefault(*tuningPath, filepath.Join(*configDir, "tuning.yaml")))
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	layout, err := zones.Load(orDefault(*zonesPath, filepath.Join(*configDir, "zones.yaml")))
	if err != nil {
		logger.Fatalf("load zones: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	idx, err := openIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}
	st, err := openStore(worldDir, *noStore)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	if st != nil {
		defer st.Close()
	}

	snap, source, err := resumeSnapshot(strings.TrimSpace(*snapPath), strings.ToLower(*resumeFrom), worldDir, st)
	if err != nil {
		logger.Fatalf("resume: %v", err)
	}

	wcfg := world.ConfigFromTuning(*worldID, tune)
	wcfg.Seed = *seed
	wcfg.Logger = log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)
	if snap != nil {
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		wcfg.Seed = snap.Seed
		wcfg.TickRateHz = snap.TickRate
		wcfg.DayTicks = snap.DayTicks
	}
	w, err := world.New(wcfg, cats, layout)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	if snap != nil {
		if err := w.ImportSnapshot(*snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from %s tick=%d", source, w.CurrentTick())
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	if idx != nil {
		w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
		w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	} else {
		w.SetTickLogger(tickLog)
		w.SetAuditLogger(auditLog)
	}

	ctx, cancel := signalContext()
	defer cancel()

	writer := snapshotWriter{worldDir: worldDir, idx: idx, st: st, log: logger}
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go writer.run(ctx, snapCh)

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(*worldID, w, idx))
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	if envCfg.EnableDebugHTTP {
		observer.NewServer(w, logger).Register(mux)
		logger.Printf("debug endpoints enabled under /debug/v1/ (loopback only)")
	}
	if envCfg.EnablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s listening on %s", *worldID, *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	<-worldDone
	if t := w.CurrentTick(); t > 0 {
		writer.write(w.ExportSnapshot(t - 1))
	}
}

// resumeSnapshot picks the state to start from. A nil snapshot means a fresh
// world.
func resumeSnapshot(explicit, source, worldDir string, st *store.Store) (*snapshot.SnapshotV1, string, error) {
	if explicit != "" {
		s, err := snapshot.ReadSnapshot(explicit)
		if err != nil {
			return nil, "", err
		}
		return &s, filepath.Base(explicit), nil
	}
	switch source {
	case "none":
		return nil, "", nil
	case "store":
		if st == nil {
			return nil, "", fmt.Errorf("resume from store with the store disabled")
		}
		s, err := st.Load()
		if errors.Is(err, store.ErrEmpty) {
			return nil, "", nil
		}
		if err != nil {
			return nil, "", err
		}
		return &s, "store", nil
	default:
		path := latestSnapshot(worldDir)
		if path == "" {
			return nil, "", nil
		}
		s, err := snapshot.ReadSnapshot(path)
		if err != nil {
			return nil, "", err
		}
		return &s, filepath.Base(path), nil
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
