package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "voxelcraft.ai/knitting/internal/persistence/log"
	"voxelcraft.ai/knitting/internal/sim/catalogs"
	"voxelcraft.ai/knitting/internal/sim/knitting"
	"voxelcraft.ai/knitting/internal/sim/tuning"
	"voxelcraft.ai/knitting/internal/sim/world"
	"voxelcraft.ai/knitting/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory (mods.yaml, tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite conversion index")
		modsFlag   = flag.String("mods", "", "comma separated enabled mods (overrides <configs>/mods.yaml)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := loadCatalogs(*configDir, *modsFlag)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("conversion table: mods=%v rules=%d digest=%s", cats.Mods.Sorted(), cats.Conversions.Len(), cats.Conversions.Digest())

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	convLog := persistlog.NewConversionLogger(*dataDir, logger)
	defer convLog.Close()
	recorders := []knitting.Recorder{convLog}

	idx, err := openRuntimeIndex(ctx, *dataDir, *disableDB, cats, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		recorders = append(recorders, idx)
	}

	w := world.New(tune, log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds))
	go w.Run(ctx)

	wsSrv, err := ws.NewServer(ws.Config{
		World:    w,
		Catalogs: cats,
		Tuning:   tune,
		Recorder: ws.MultiRecorder(recorders...),
		Logger:   log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		logger.Fatalf("ws server: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/rules", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"mods":   cats.Mods.Sorted(),
			"digest": cats.Conversions.Digest(),
			"rules":  cats.Conversions.Rules(),
		})
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		fmt.Fprintf(rw, "# HELP knitting_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE knitting_world_tick gauge\n")
		fmt.Fprintf(rw, "knitting_world_tick %d\n", w.CurrentTick())

		fmt.Fprintf(rw, "# HELP knitting_players Connected players.\n")
		fmt.Fprintf(rw, "# TYPE knitting_players gauge\n")
		fmt.Fprintf(rw, "knitting_players %d\n", w.PlayerCount())

		fmt.Fprintf(rw, "# HELP knitting_ground_items Item entities on the ground.\n")
		fmt.Fprintf(rw, "# TYPE knitting_ground_items gauge\n")
		fmt.Fprintf(rw, "knitting_ground_items %d\n", len(w.GroundItems()))

		if idx != nil {
			if n, err := idx.CountConversions(r.Context(), ""); err == nil {
				fmt.Fprintf(rw, "# HELP knitting_conversions_total Indexed conversions.\n")
				fmt.Fprintf(rw, "# TYPE knitting_conversions_total counter\n")
				fmt.Fprintf(rw, "knitting_conversions_total %d\n", n)
			}
			fmt.Fprintf(rw, "knitting_index_dropped_total %d\n", idx.Dropped())
		}
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

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

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// loadCatalogs reads mods.yaml unless -mods names the enabled set directly.
func loadCatalogs(configDir, modsFlag string) (*catalogs.Catalogs, error) {
	if strings.TrimSpace(modsFlag) == "" {
		return catalogs.Load(configDir)
	}
	mods := catalogs.NewModSet(strings.Split(modsFlag, ",")...)
	return &catalogs.Catalogs{Mods: mods, Conversions: catalogs.Populate(mods)}, nil
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
