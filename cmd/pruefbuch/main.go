// Entry point for the pruefbuch HTTP service — chi router, Basic Auth,
// optional MCP stdio transport.
package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pruefbuch/dbopen"
	"github.com/hazyhaar/pruefbuch/observability"
	"github.com/hazyhaar/pruefbuch/pruefung"
)

var version = "dev" // set via -ldflags "-X main.version=..."

func main() {
	_ = godotenv.Load()

	logLevel := env("LOG_LEVEL", "info")
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := pruefung.DefaultConfig()
	if path := os.Getenv("CONFIG"); path != "" {
		var err error
		cfg, err = pruefung.LoadConfigFile(path)
		if err != nil {
			slog.Error("load config", "path", path, "error", err)
			os.Exit(1)
		}
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("audit db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := []pruefung.Option{
		pruefung.WithLogger(logger),
		pruefung.WithMaxRetries(cfg.MaxRetries),
	}

	if cfg.ObservabilityDBPath != "" {
		obsDB, err := dbopen.Open(cfg.ObservabilityDBPath, dbopen.WithMkdirAll())
		if err != nil {
			slog.Error("observability db", "error", err)
			os.Exit(1)
		}
		defer obsDB.Close()
		if err := observability.Init(obsDB); err != nil {
			slog.Error("observability init", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pruefung.WithEventLogger(observability.NewEventLogger(obsDB)))
	}

	svc, err := pruefung.New(db, opts...)
	if err != nil {
		slog.Error("service", "error", err)
		os.Exit(1)
	}

	// MCP over stdio replaces the HTTP surface for agent use.
	if env("MCP_TRANSPORT", "") == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "pruefbuch", Version: version}, nil)
		svc.RegisterMCP(mcpSrv)
		slog.Info("MCP stdio starting", "version", version)
		if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"version": version})
	})

	api := chi.NewRouter()
	if user, pass := os.Getenv("AUTH_USER"), os.Getenv("AUTH_PASSWORD"); pass != "" {
		if user == "" {
			user = "pruefer"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("hash auth password", "error", err)
			os.Exit(1)
		}
		api.Use(basicAuth(user, hash))
	} else {
		slog.Warn("AUTH_PASSWORD not set, API is unauthenticated")
	}
	api.Mount("/", svc.Routes())
	r.Mount("/api", api)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// basicAuth checks HTTP Basic credentials against a bcrypt hash.
func basicAuth(user string, passwordHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword(passwordHash, []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="pruefbuch"`)
				writeJSON(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
