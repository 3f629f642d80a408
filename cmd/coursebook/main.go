// ABOUTME: Entry point for the coursebook course-management server
// ABOUTME: Subcommands: serve, init, bootstrap-admin, health

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/coursebook/coursebook/internal/api"
	"github.com/coursebook/coursebook/internal/auth"
	"github.com/coursebook/coursebook/internal/config"
	"github.com/coursebook/coursebook/internal/mail"
	"github.com/coursebook/coursebook/internal/store"
)

// version is overridden at build time via -ldflags
var version = "dev"

const banner = `
                                    _                 _
  ___ ___  _   _ _ __ ___  ___  ___| |__   ___   ___ | | __
 / __/ _ \| | | | '__/ __|/ _ \/ _ \ '_ \ / _ \ / _ \| |/ /
| (_| (_) | |_| | |  \__ \  __/  __/ |_) | (_) | (_) |   <
 \___\___/ \__,_|_|  |___/\___|\___|_.__/ \___/ \___/|_|\_\
`

const exampleConfig = `environment: development

server:
  http_addr: localhost:3000

database:
  path: ${COURSEBOOK_DATA_DIR}/coursebook.db

auth:
  # Required in production. Falls back to an insecure default otherwise.
  secret: ${JWT_SECRET}

mail:
  # Without an API key, login codes are logged instead of emailed.
  sendgrid_api_key: ${SENDGRID_API_KEY}
  from_address: login@coursebook.local

logging:
  level: info
  format: text
`

// getConfigPath returns the path to the coursebook config file.
// Priority: COURSEBOOK_CONFIG env var > XDG_CONFIG_HOME/coursebook/coursebook.yaml > ~/.config/coursebook/coursebook.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COURSEBOOK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "coursebook.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coursebook", "coursebook.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coursebook <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                      Start the API server")
		fmt.Println("  init                       Write an example config file")
		fmt.Println("  bootstrap-admin --email E  Create or promote an admin user")
		fmt.Println("  health                     Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap-admin":
		err = runBootstrapAdmin(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	if cfg.UsingDefaultSecret() {
		logger.Warn("auth.secret is not set, using the insecure default. Do not run like this in production.")
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	mailer := mail.NewSender(cfg.Mail.SendGridAPIKey, cfg.Mail.FromAddress, logger)
	signer := auth.NewTokenSigner([]byte(cfg.AuthSecret()))
	authSvc := auth.NewService(st, mailer, signer, logger)
	server := api.NewServer(st, authSvc, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting coursebook", "http_addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✔ ")
	fmt.Printf("Wrote example config to %s\n", configPath)
	return nil
}

func runBootstrapAdmin(ctx context.Context) error {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)
	email := fs.String("email", "", "email address of the admin user")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	user, err := st.UpsertUserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	user.IsAdmin = true
	if err := st.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("promoting user: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("✔ ")
	fmt.Printf("User %s (id %d) is now an admin\n", user.Email, user.ID)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		Up bool `json:"up"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil || !status.Up {
		return fmt.Errorf("server unhealthy")
	}

	green := color.New(color.FgGreen)
	green.Print("✔ ")
	fmt.Println("Server is healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level: h.level,
		attrs: newAttrs,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return h
}
