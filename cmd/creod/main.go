package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/echonexus/creo-core/internal/config"
	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/gateway"
	"github.com/echonexus/creo-core/internal/ingest"
	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
	"github.com/echonexus/creo-core/internal/server"
	"github.com/echonexus/creo-core/internal/stages"
)

func main() {
	configPath := "creo.yaml"
	if v := os.Getenv("CREO_CONFIG"); v != "" {
		configPath = v
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	db, err := ledger.NewSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open event log: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	bus := ledger.NewBus()
	led := ledger.Broadcast(db, bus)

	dirs := ingest.DefaultDirs(cfg.DataDir)
	for class, path := range cfg.StagingDirs {
		dirs[class] = path
	}
	if err := dirs.Bootstrap(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare directories: %v\n", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New()
	gw := gateway.New(led, cfg.MaxConcurrent)

	src := stages.NewSource(cfg.Seed)
	creative := pipeline.NewConductor(server.PipelineCreative, stages.Creative(src, cfg.AmplifyDepth), led)
	gw.Register(server.PipelineCreative, creative, nil)

	document := pipeline.NewConductor(server.PipelineDocument, ingest.DocumentStages(dispatcher, dirs), led)
	intake := ingest.NewIntake(dirs, gw, server.PipelineDocument)
	gw.Register(server.PipelineDocument, document, intake.Done)

	srv := server.New(gw, led, bus, dispatcher, intake)
	fmt.Printf("Starting server on http://localhost:%d\n", cfg.Port)
	if err := srv.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
