package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cbsetl/internal/config"
	"cbsetl/internal/metrics"
	"cbsetl/internal/metrics/prompush"
	"cbsetl/internal/pipeline"
	"cbsetl/internal/storage"
	"cbsetl/internal/storage/postgres"
	"cbsetl/internal/storage/sqlite"
	"cbsetl/internal/webui"
)

// warehouseConn is what a storage backend must provide: the write path for
// the pipeline and the read path for the web UI.
type warehouseConn interface {
	storage.Warehouse
	storage.StatsReader
}

// main loads the job config, optionally initializes a metrics backend, runs
// the pipeline, and optionally serves the read path afterwards.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		sourceFlg         string
		validate          bool
		serve             bool
	)

	flag.StringVar(&cfgPath, "config", "configs/cbs_crime.json", "job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&sourceFlg, "source", "", "override source kind (cbs, file)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&serve, "serve", false, "serve the read path after a successful run")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if sourceFlg != "" {
		p.Source.Kind = sourceFlg
	}

	issues := config.ValidatePipeline(*p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → none.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(p.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v backend=%v job=%v", gwURL, backendName, p.Job)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s source=%s storage=%s data_dir=%s",
			p.Job, p.Source.Kind, p.Storage.Kind, p.DataDir)
	}

	wh, err := openWarehouse(ctx, p)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer wh.Close()

	sum, err := pipeline.New(p, wh).Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s: %d facts loaded, %d checks passed",
			time.Since(start).Truncate(time.Millisecond), sum.Facts, sum.ChecksRan)
	}

	if serve {
		addr := p.Serve.Addr
		if addr == "" {
			addr = config.DefaultServeAddr
		}
		if err := webui.Serve(ctx, webui.Config{Addr: addr, DataDir: p.DataDir}, wh); err != nil {
			log.Fatalf("webui: %v", err)
		}
	}
}

// openWarehouse builds the configured storage backend.
func openWarehouse(ctx context.Context, p *config.Pipeline) (warehouseConn, error) {
	switch p.Storage.Kind {
	case "postgres":
		return postgres.NewRepository(ctx, postgres.Config{DSN: p.Storage.DB.DSN})
	case "sqlite":
		return sqlite.NewRepository(ctx, sqlite.Config{DSN: p.Storage.DB.DSN})
	default:
		return nil, fmt.Errorf("unknown storage kind %q", p.Storage.Kind)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
