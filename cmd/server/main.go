package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"energy_dashboard/internal/api"
	"energy_dashboard/internal/config"
	"energy_dashboard/internal/dashboard"
	"energy_dashboard/internal/fetch"
	"energy_dashboard/internal/server"
	"energy_dashboard/internal/ws"
)

type serverConfig struct {
	APIURL    string
	Bucket    string
	Pages     string
	Threshold float64
	AccessLog bool
}

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	addr := flag.String("addr", ":8080", "listen address")
	apiURL := flag.String("api-url", "", "energy API base URL (overrides API_URL, API_HOST and API_PORT)")
	pages := flag.String("pages", "", "YAML page contexts, watched for changes (overrides PAGES_FILE; built-in when empty)")
	threshold := flag.Float64("threshold", 0, "energy-in-out link threshold in (0, 1]; page setting when 0")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg := serverConfig{
		APIURL:    config.APIURL(*apiURL),
		Bucket:    config.Resolve("", "API_BUCKET"),
		Pages:     config.Resolve(*pages, "PAGES_FILE"),
		Threshold: *threshold,
		AccessLog: true,
	}
	if cfg.APIURL == "" {
		log.Fatal("Energy API not configured: set -api-url, API_URL or API_HOST")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := newHandler(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{Addr: *addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		if err := shutdown(srv, 5*time.Second); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Energy API: %s", cfg.APIURL)
	log.Printf("Starting server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// newHandler wires the API client, page pipelines, WebSocket hub and the
// page-context watcher into one handler. The watcher stops with ctx.
func newHandler(ctx context.Context, cfg serverConfig) (http.Handler, error) {
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0, 1]", cfg.Threshold)
	}
	pages, err := config.LoadPages(cfg.Pages)
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}

	metrics := server.NewMetrics()
	client := api.NewClient(cfg.APIURL, api.WithBucket(cfg.Bucket), api.WithObserver(metrics))
	svc := dashboard.New(fetch.New(client, nil), client, pages, nil)
	svc.Threshold = cfg.Threshold

	hub := ws.NewHub(nil)
	bridge := ws.NewBridge(hub)
	if cfg.Pages != "" {
		err := config.Watch(ctx, cfg.Pages, nil, func(p *config.Pages) {
			svc.SetPages(p)
			bridge.OnPagesReloaded(p)
		})
		if err != nil {
			return nil, err
		}
		log.Printf("Watching page contexts in %s", cfg.Pages)
	}

	opts := []server.Option{
		server.WithWebSocket(ws.NewHandler(hub, svc)),
		server.WithMetrics(metrics),
	}
	if cfg.AccessLog {
		opts = append(opts, server.WithAccessLog(os.Stdout))
	}
	return server.New(svc, opts...).Handler(), nil
}

// shutdown drains srv, giving in-flight requests up to timeout.
func shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
