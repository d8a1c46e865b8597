package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"booked/internal/api"
	"booked/internal/availability"
	"booked/internal/caldav"
	"booked/internal/calendar"
	"booked/internal/config"
	"booked/internal/export"
	"booked/internal/google"
	"booked/internal/models"
	"booked/internal/store"
	"booked/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "booked",
		Usage: "Sync personal calendars and find shared free time for groups.",
		Commands: []*cli.Command{
			authCommand(),
			syncCommand(),
			freeCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			cfg, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(cfg, authCode)
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
		Usage: "Fetch external calendar events and merge them into the user's stored set.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "booked.yaml", Usage: "Path to the YAML config file."},
			&cli.StringFlag{Name: "user", Required: true, Usage: "User id whose event set is synced."},
			&cli.StringFlag{Name: "account", Usage: "Google account name (token-<account>.json). Default: first saved token."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be merged without persisting."},
			&cli.BoolFlag{Name: "watch", Usage: "Keep syncing on the configured cron schedule."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			provider, err := buildProvider(c.Context, logger, c.String("account"))
			if err != nil {
				return err
			}
			st, err := buildStore(logger)
			if err != nil {
				return err
			}

			s := syncer.New(logger, provider, st, syncer.Options{
				CalendarIDs: cfg.CalendarIDs,
				Horizon:     cfg.Horizon(),
				Location:    loc,
				DryRun:      c.Bool("dry-run"),
			})

			if c.Bool("watch") {
				return s.Watch(c.Context, c.String("user"), cfg.RefreshCron)
			}

			result, err := s.Sync(c.Context, c.String("user"))
			if err != nil {
				return fmt.Errorf("sync cycle failed: %w", err)
			}
			logger.Info("Sync finished.", "outcome", result.Outcome, "fetched", result.Fetched, "stored", result.Stored)
			return nil
		},
	}
}

func freeCommand() *cli.Command {
	return &cli.Command{
		Name:  "free",
		Usage: "Compute common free-time windows for a group from stored availability.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "booked.yaml", Usage: "Path to the YAML config file."},
			&cli.StringFlag{Name: "group", Required: true, Usage: "Group id to query."},
			&cli.StringFlag{Name: "start", Required: true, Usage: "Range start (RFC3339)."},
			&cli.StringFlag{Name: "end", Required: true, Usage: "Range end (RFC3339)."},
			&cli.StringFlag{Name: "members", Usage: "Comma-separated member subset. Default: all group members."},
			&cli.StringFlag{Name: "ics", Usage: "Write the windows to this file as iCalendar instead of text."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			start, err := time.Parse(time.RFC3339, c.String("start"))
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			end, err := time.Parse(time.RFC3339, c.String("end"))
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			st, err := buildStore(logger)
			if err != nil {
				return err
			}
			ctx := c.Context
			if err := seedGroups(ctx, st, cfg.Groups); err != nil {
				return err
			}

			group, err := st.GetGroup(ctx, c.String("group"))
			if err != nil {
				return fmt.Errorf("failed to load group: %w", err)
			}

			members := group.Members
			if raw := c.String("members"); raw != "" {
				members = splitList(raw)
			}

			memberEvents := make(map[string][]models.Event, len(members))
			for _, member := range members {
				events, err := st.GetUserEvents(ctx, member)
				if err != nil {
					return fmt.Errorf("failed to load events for %s: %w", member, err)
				}
				memberEvents[member] = events
			}

			ga := availability.BuildGroupAvailability(group.ID, memberEvents)
			windows := availability.FreeWindows(ga, members, models.Interval{Start: start, End: end})

			if path := c.String("ics"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				title := fmt.Sprintf("%s: everyone free", group.Name)
				if err := export.FreeWindows(f, title, windows); err != nil {
					return err
				}
				logger.Info("Wrote free windows.", "file", path, "count", len(windows))
				return nil
			}

			if len(windows) == 0 {
				fmt.Println("No common free time in the requested range.")
				return nil
			}
			for _, win := range windows {
				fmt.Printf("%s — %s (%s)\n",
					win.Start.Format(time.RFC3339),
					win.End.Format(time.RFC3339),
					win.End.Sub(win.Start))
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API for group availability queries.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "booked.yaml", Usage: "Path to the YAML config file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := buildStore(logger)
			if err != nil {
				return err
			}
			if err := seedGroups(c.Context, st, cfg.Groups); err != nil {
				return err
			}

			return api.New(logger, st).Listen(cfg.Listen)
		},
	}
}

// buildProvider selects the external calendar provider. CALDAV_ENDPOINT
// switches to CalDAV; the default is Google Calendar.
func buildProvider(ctx context.Context, logger *slog.Logger, account string) (calendar.Provider, error) {
	if endpoint := os.Getenv("CALDAV_ENDPOINT"); endpoint != "" {
		client, err := caldav.NewClient(logger, endpoint, os.Getenv("CALDAV_USERNAME"), os.Getenv("CALDAV_PASSWORD"))
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	}

	if account == "" {
		accounts, err := google.GetTokenAccounts()
		if err != nil {
			return nil, fmt.Errorf("could not look for saved google accounts: %w", err)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
		}
		account = accounts[0]
		if len(accounts) > 1 {
			logger.Info("Multiple saved accounts found, using the first.", "account", account)
		}
	}

	client, err := google.NewClient(ctx, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), account)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return client, nil
}

// buildStore selects the document store. POSTGRES_DSN enables the
// postgres-backed store; without it everything lives in memory for the
// lifetime of the process.
func buildStore(logger *slog.Logger) (store.DocumentStore, error) {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		st, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return st, nil
	}
	logger.Warn("POSTGRES_DSN not set, using in-memory store. Data will not survive this process.")
	return store.NewMemory(), nil
}

// seedGroups pushes config-declared groups into the store so free/serve
// work without a separate provisioning step.
func seedGroups(ctx context.Context, st store.DocumentStore, groups []config.GroupConfig) error {
	for _, g := range groups {
		err := st.PutGroup(ctx, models.Group{ID: g.ID, Name: g.Name, Members: g.Members})
		if err != nil {
			return fmt.Errorf("failed to seed group %s: %w", g.ID, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
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
