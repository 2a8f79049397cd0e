package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"potato-guard/internal/audit"
	"potato-guard/internal/bot"
	"potato-guard/internal/commands"
	"potato-guard/internal/config"
	"potato-guard/internal/database"
	"potato-guard/internal/dispatcher"
	"potato-guard/internal/engine"
	"potato-guard/internal/executor"
	"potato-guard/internal/lockdown"
	"potato-guard/internal/logging"
	"potato-guard/internal/notifier"
	"potato-guard/internal/policy"
	"potato-guard/internal/state"
)

func main() {
	fmt.Println("Starting PotatoGuard Anti-Nuke Engine")

	cfg := config.LoadOrDefault("config.json")

	if err := initializeLogging(cfg); err != nil {
		panic(err)
	}

	if err := initializeDatabase(cfg); err != nil {
		panic(err)
	}

	if cfg.Bot.Token == "" {
		fmt.Println("No bot token configured: set bot.token in config.json or DISCORD_TOKEN")
		os.Exit(1)
	}

	counters := state.NewCounters()
	counters.StartSweeper(cfg.CounterWindow())

	if err := startBot(cfg, counters); err != nil {
		panic(err)
	}

	logging.Info("All components started successfully")
	logging.Info("Counter window: %s, attribution deadline: %s", cfg.CounterWindow(), cfg.AttributionDeadline())

	waitForShutdown()

	counters.StopSweeper()
	bot.GetSession().Close()
	database.Close()

	logging.Info("Shutdown complete")
}

func initializeLogging(cfg *config.Config) error {
	return logging.InitGlobalLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Path)
}

func initializeDatabase(cfg *config.Config) error {
	fmt.Println("Initializing SQLite database...")

	if err := database.Initialize(cfg.Database.Path); err != nil {
		return err
	}

	if database.IsConnected() {
		fmt.Println("Database initialized and connection verified ✓")
	} else {
		fmt.Println("Database initialized but connection verification failed")
	}

	return nil
}

// startBot assembles the pipeline and connects: session, policy cache,
// risk state, attribution, executor, lockdown, engine, commands.
func startBot(cfg *config.Config, counters *state.Counters) error {
	fmt.Println("Initializing Discord bot...")

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		return err
	}
	session := bot.GetSession()
	discord := session.GetDiscord()

	store := policy.NewStore(database.GetDB())
	ledger := state.NewLedger()
	unmod := state.NewUnmoderatable()
	notif := notifier.New(discord)

	httpPool := dispatcher.NewHTTPPool(cfg.Network.HTTPPoolSize)
	penalizer := dispatcher.NewRESTPenalizer(httpPool, cfg.Bot.Token, cfg.Network.APIBaseURL)

	resolver := audit.NewResolver(discord, cfg.AttributionBackoff(), cfg.AttributionDeadline())
	exec := executor.New(discord, penalizer, notif, ledger, unmod, cfg.LedgerGrace())
	locks := lockdown.NewManager(discord, store, notif)

	eng := engine.New(engine.Deps{
		Guilds:   discord,
		Store:    store,
		Counters: counters,
		Ledger:   ledger,
		Unmod:    unmod,
		Resolver: resolver,
		Executor: exec,
		Notifier: notif,
		Lockdown: locks,
	})

	// Handlers go on before Open so the initial event burst is not
	// missed. The bot's own ID is only known after Connect.
	session.SetupEventHandlers(eng, counters)

	if err := session.Connect(); err != nil {
		return err
	}
	eng.SetSelfID(session.SelfID())

	if err := commands.Initialize(session, store, locks, counters); err != nil {
		return err
	}

	fmt.Println("Discord bot initialized successfully")
	return nil
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutdown signal received")
}
