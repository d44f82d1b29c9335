package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"calagent/internal/api"
	"calagent/internal/command"
	"calagent/internal/config"
	"calagent/internal/google"
	"calagent/internal/holiday"
	"calagent/internal/models"
	"calagent/internal/store"
	"calagent/internal/syncer"
	"calagent/internal/ws"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calagent",
		Usage: "Personal calendar service with Google Calendar sync and live notifications.",
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
			syncCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the calendar API server and notification channel.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address, overrides LISTEN_ADDR."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if c.String("listen") != "" {
				cfg.ListenAddr = c.String("listen")
			}
			logger := setupLogger(cfg.LogLevel)

			st := store.New()
			holidayCal := holiday.NewCalendar()
			st.SetHolidayChecker(holidayCal)
			hub := ws.NewHub(logger, cfg.AllowedOrigins)

			var provider *google.CalendarClient
			if cfg.GoogleAccount != "" {
				provider, err = google.NewClient(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount)
				if err != nil {
					return fmt.Errorf("failed to create google client: %w", err)
				}
			} else {
				logger.Warn("No GOOGLE_ACCOUNT configured, running without a calendar provider.")
			}

			calendarIDs, err := resolveCalendarIDs(c.Context, logger, provider, cfg.CalendarIDs)
			if err != nil {
				return err
			}

			var syncProvider syncer.Provider
			var writer api.ProviderWriter
			if provider != nil {
				syncProvider = provider
				writer = provider
			}
			sn := syncer.New(logger, syncProvider, st, calendarIDs, cfg.LookBehind, cfg.LookAhead, false)

			parser := command.NewParser(cfg.Timezone)
			calendarID := ""
			if len(calendarIDs) > 0 {
				calendarID = calendarIDs[0]
			}
			handlers := api.NewHandlers(logger, st, sn, hub, writer, parser, holidayCal, cfg.Timezone, calendarID)
			router := api.NewRouter(handlers, hub, cfg.AllowedOrigins)

			// Server-initiated syncs: each run announces its outcome on the
			// notification channel just like a user-triggered sync.
			var scheduler *cron.Cron
			if cfg.SyncSchedule != "" {
				scheduler = cron.New()
				_, err := scheduler.AddFunc(cfg.SyncSchedule, func() {
					status, err := sn.Sync(context.Background())
					if err != nil {
						logger.Error("Scheduled sync failed", "error", err)
						return
					}
					hub.Broadcast(models.NewSyncCompleteMessage(status, time.Now()))
				})
				if err != nil {
					return fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", cfg.SyncSchedule, err)
				}
				scheduler.Start()
				logger.Info("Scheduled sync enabled", "schedule", cfg.SyncSchedule)
			}

			srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Server listening", "addr", cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				logger.Info("Signal received, shutting down", "signal", sig.String())
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			}

			if scheduler != nil {
				scheduler.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			logger.Info("Server stopped.")
			return nil
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			if accounts, err := google.GetTokenAccounts(); err == nil && len(accounts) > 0 {
				fmt.Printf("Existing accounts: %s\n", strings.Join(accounts, ", "))
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one sync cycle against the configured calendars and print the result.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := setupLogger(cfg.LogLevel)

			if cfg.GoogleAccount == "" {
				if accounts, err := google.GetTokenAccounts(); err == nil && len(accounts) > 0 {
					return fmt.Errorf("GOOGLE_ACCOUNT environment variable not set; saved accounts: %s", strings.Join(accounts, ", "))
				}
				return fmt.Errorf("GOOGLE_ACCOUNT environment variable not set")
			}
			provider, err := google.NewClient(c.Context, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount)
			if err != nil {
				return fmt.Errorf("failed to create google client: %w", err)
			}
			calendarIDs, err := resolveCalendarIDs(c.Context, logger, provider, cfg.CalendarIDs)
			if err != nil {
				return err
			}

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			st := store.New()
			sn := syncer.New(logger, provider, st, calendarIDs, cfg.LookBehind, cfg.LookAhead, c.Bool("dry-run"))
			status, err := sn.Sync(c.Context)
			if err != nil {
				return fmt.Errorf("sync cycle failed: %w", err)
			}

			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// resolveCalendarIDs falls back to the account's own calendar list when no
// calendar IDs are configured explicitly.
func resolveCalendarIDs(ctx context.Context, logger *slog.Logger, provider *google.CalendarClient, configured []string) ([]string, error) {
	if len(configured) > 0 || provider == nil {
		return configured, nil
	}
	ids, err := provider.DiscoverGoogleCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover calendars: %w", err)
	}
	logger.Info("No GOOGLE_CALENDAR_IDS configured, using discovered calendars.", "count", len(ids))
	return ids, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
