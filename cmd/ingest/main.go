// Command ingest is the pipeline's core entrypoint: it dials the upstream
// Cedro datafeed, demultiplexes and captures every line to disk, archives
// aged-out capture files, and exposes a monitor HTTP/WS surface over the
// live session state.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gustavoferreira/cedrofeed/internal/archive"
	"github.com/gustavoferreira/cedrofeed/internal/capture"
	"github.com/gustavoferreira/cedrofeed/internal/checkpoint"
	"github.com/gustavoferreira/cedrofeed/internal/config"
	"github.com/gustavoferreira/cedrofeed/internal/monitor"
	"github.com/gustavoferreira/cedrofeed/internal/session"
	"github.com/gustavoferreira/cedrofeed/internal/wire"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("ingest starting")

	if cfg.Username == "" || cfg.Password == "" {
		log.Fatal("ingest: -user and -pass are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("ingest: received signal %v, shutting down", sig)
		cancel()
	}()

	var cursorDB *mongo.Database
	if cfg.MongoURI != "" {
		mirror, err := checkpoint.ConnectMongoMirror(ctx, cfg.MongoURI)
		if err != nil {
			log.Printf("ingest: mongo mirror disabled: %v", err)
		} else {
			cursorDB = mirror.DB()
			defer mirror.Close(context.Background())
		}
	}

	demux := capture.NewDemultiplexer(cfg.CaptureDir)
	demuxDone := make(chan struct{})
	go demux.Run(demuxDone)

	if cfg.ArchiveDir != "" {
		var uploader archive.Uploader
		if cfg.S3Bucket != "" {
			u, err := archive.NewS3Uploader(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
			if err != nil {
				log.Printf("ingest: s3 upload disabled: %v", err)
			} else {
				uploader = u
			}
		}
		archiver := archive.New(cfg.CaptureDir, cfg.ArchiveDir, cfg.ArchiveMaxGB,
			cfg.ArchiveIntervalHours, cfg.ArchiveAfterHours, uploader, cursorDB)
		go archiver.Run(ctx)
	}

	sessCfg := session.DefaultConfig(cfg.Addr, cfg.Username, cfg.Password, cfg.Contracts)
	mgr := session.New(sessCfg, nil)

	var stats pipelineStats
	framer := wire.NewFramer(nil)

	onLine := func(line string) {
		for _, rec := range framer.Feed([]byte(line)) {
			stats.records.Add(1)
			if err := demux.Ingest(rec); err != nil {
				stats.bad.Add(1)
				log.Printf("ingest: capture: %v", err)
			}
		}
	}

	go func() {
		if err := mgr.Run(ctx, onLine); err != nil && ctx.Err() == nil {
			log.Printf("ingest: session manager stopped: %v", err)
		}
	}()

	hub := monitor.NewHub(cfg.StreamBufferSize)
	srv := monitor.NewServer(hub, nil, func() monitor.Stats {
		return monitor.Stats{
			RecordsTotal:  stats.records.Load(),
			BadTotal:      stats.bad.Load(),
			Reconnects:    mgr.Reconnects(),
			SessionState:  mgr.State().String(),
			StreamClients: hub.ClientCount(),
		}
	})

	mux := http.NewServeMux()
	srv.Register(mux)
	addr := fmt.Sprintf("%s:%d", cfg.MonitorHost, cfg.MonitorPort)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("monitor listening on http://%s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("ingest: monitor server error: %v", err)
	}

	close(demuxDone)
	log.Println("ingest stopped")
}

type pipelineStats struct {
	records atomic.Int64
	bad     atomic.Int64
}
