package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/auth"
	"github.com/epokrso/steam-analyzer/internal/control"
	"github.com/epokrso/steam-analyzer/internal/dashboard"
	"github.com/epokrso/steam-analyzer/internal/inventory"
	"github.com/epokrso/steam-analyzer/internal/market"
	"github.com/epokrso/steam-analyzer/internal/poller"
	"github.com/epokrso/steam-analyzer/internal/state"
	"github.com/epokrso/steam-analyzer/internal/update"
	"github.com/epokrso/steam-analyzer/logger"
)

const (
	communityBaseURL = "https://steamcommunity.com"
	communityHost    = "steamcommunity.com"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	monitorOnly := flag.Bool("monitor", false, "Run the poll loop without the dashboard")
	serverOnly := flag.Bool("server", false, "Run the dashboard without the poll loop")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Analyzer.Name,
		"version": cfg.Analyzer.Version,
	}).Info("starting steam analyzer")

	steamID, err := auth.ResolveSteamID(cfg.Account.SettingsFile, cfg.Account.SteamID64)
	if err != nil {
		log.WithError(err).Error("failed to resolve account identity")
		os.Exit(1)
	}

	cookies, err := auth.LoadCookies(cfg.Account.CookiesFile)
	if err != nil {
		log.WithError(err).Error("failed to load session cookies; run the login step first")
		os.Exit(1)
	}
	jar, err := auth.NewJar(communityHost, cookies)
	if err != nil {
		log.WithError(err).Error("failed to build cookie jar")
		os.Exit(1)
	}

	store := state.NewStore(cfg.Poll.StateFile)
	if err := store.Load(cfg.Catalog); err != nil {
		log.WithError(err).Error("failed to load state")
		os.Exit(1)
	}

	signals := control.New()

	source := inventory.NewSource(communityBaseURL, steamID, cfg.Account.Language, jar, cfg.Market.Timeout)
	renderer := market.NewHTTPRenderer(communityBaseURL, jar, cfg.Market.Timeout)
	client := market.NewClient(communityBaseURL, cfg.Market, cfg.Account.Currency, cfg.Account.Language, jar, renderer, signals)
	analyzer := market.NewAnalyzer(cfg.Analysis, client)

	p := poller.New(*cfg, source, client, analyzer, store, signals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *monitorOnly {
		cfg.Dashboard.Enabled = false
	}

	dash, err := dashboard.NewServer(cfg.Dashboard, store, signals, cfg.Catalog, log)
	if err != nil {
		log.WithError(err).Error("failed to build dashboard server")
		os.Exit(1)
	}

	var wg sync.WaitGroup
	if dash != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.Run(ctx, cfg.Analyzer.Name); err != nil {
				log.WithError(err).Warn("dashboard server exited with error")
			}
		}()
		log.WithFields(logger.Fields{"address": dash.Address()}).Info("dashboard listening")
	}

	// OS signals behave like a dashboard stop request.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		signals.RequestStop()
	}()

	if *serverOnly {
		// Dashboard-only mode: block until a stop or update request.
		for !signals.Interrupted() {
			signals.Sleep(control.Granularity)
		}
	} else {
		p.Run(ctx)
	}

	log.Info("poll loop stopped, shutting down")
	cancel()
	wg.Wait()

	if err := store.Save(); err != nil {
		log.WithError(err).Error("final state save failed")
	}

	if signals.UpdateRequested() {
		workDir, err := os.Getwd()
		if err != nil {
			log.WithError(err).Error("cannot resolve working directory for update")
			os.Exit(1)
		}
		if err := update.Run(context.Background(), workDir); err != nil {
			log.WithError(err).Error("update-and-relaunch failed")
			os.Exit(1)
		}
	}
}
