// Command securityprices fetches last price and 52-week range for the
// configured symbol batches and writes them to a timestamped CSV file.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"securityprices/internal/artifact"
	"securityprices/internal/config"
	"securityprices/internal/httpx"
	"securityprices/internal/pipeline"
	"securityprices/internal/provider"
	"securityprices/internal/provider/cache"
	"securityprices/internal/provider/cnbc"
)

func main() {
	var configPath string
	var outDir string
	var verify bool

	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json or config.yaml (optional)")
	flag.StringVar(&outDir, "out", "", "output directory (overrides config)")
	flag.BoolVar(&verify, "verify", false, "read the artifact back after the run and check the row count")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil { log.Fatalf("config: %v", err) }
	if outDir != "" { cfg.Output.Dir = outDir }
	if err := cfg.Validate(); err != nil { log.Fatalf("config: %v", err) }

	start := time.Now()

	httpClient := httpx.New(time.Duration(cfg.Source.RequestTimeoutSec) * time.Second)
	httpClient.UserAgent = cfg.Source.UserAgent

	client := cnbc.NewClient(
		cnbc.WithBaseURL(cfg.Source.BaseURL),
		cnbc.WithHTTPClient(httpClient),
		cnbc.WithHeader(http.Header{"Accept": []string{"text/html"}}),
	)
	var p provider.Provider = cnbc.New(client)
	if cfg.Run.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, TTL: time.Duration(cfg.Run.CacheTTLSeconds) * time.Second, MaxItems: cfg.Run.CacheMaxItems}
	}

	out, err := artifact.Create(cfg.Output.Dir, start)
	if err != nil { log.Fatalf("artifact: %v", err) }
	log.Printf("writing %s", out.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Run(ctx, p, out, cfg.Batches, pipeline.Options{
		MaxConcurrency: cfg.Run.MaxConcurrency,
		OnMismatch:     pipeline.Policy(cfg.Output.OnMismatch),
	})
	if err != nil {
		log.Fatalf("%s: %v (%d rows in %s before failure)", p.Name(), err, summary.Rows, out.Path)
	}
	log.Printf("%s: %d batches, %d rows, %d skipped in %v", p.Name(), summary.Batches, summary.Rows, summary.Skipped, time.Since(start).Round(time.Millisecond))

	if verify {
		quotes, err := artifact.Read(out.Path)
		if err != nil { log.Fatalf("verify: %v", err) }
		if len(quotes) != summary.Rows {
			log.Fatalf("verify: %s holds %d rows, wrote %d", out.Path, len(quotes), summary.Rows)
		}
		log.Printf("verify: %d rows read back from %s", len(quotes), out.Path)
	}
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
