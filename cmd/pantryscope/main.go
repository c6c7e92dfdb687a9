package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/pantryscope/pantryscope/pkg/catalog"
	"github.com/pantryscope/pantryscope/pkg/config"
	"github.com/pantryscope/pantryscope/pkg/content"
	"github.com/pantryscope/pantryscope/pkg/llm"
	"github.com/pantryscope/pantryscope/pkg/prefs"
	"github.com/pantryscope/pantryscope/pkg/repository"
	"github.com/pantryscope/pantryscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	setupLog(opts.Debug)

	log.Printf("[INFO] starting pantryscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires the application together and blocks until ctx is canceled
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LLM.APIKey != "" {
		// rebuild the logger so the key never leaks into log output
		setupLog(opts.Debug, cfg.LLM.APIKey)
	}

	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := repos.DB.Close(); err != nil {
			log.Printf("[WARN] can't close database: %v", err)
		}
	}()

	// preference memory components share the vocabulary and the
	// substitution table, both extended from config
	prefsCfg := cfg.GetPrefsConfig()
	vocab := prefs.DefaultVocabulary().Merge(prefsCfg.ExtraCuisines, prefsCfg.ExtraDietaryTerms)
	extractor := prefs.NewExtractor(repos.Preference, vocab)
	profiler := prefs.NewProfiler(repos.Preference)
	resolver := prefs.NewResolver(prefs.DefaultSubstitutions().Merge(prefsCfg.Substitutions))

	// recipe catalog ingestion from configured feeds
	catalogCfg := cfg.GetCatalogConfig()
	var pages catalog.PageReader
	if catalogCfg.Extraction.Enabled {
		pages = content.NewPageExtractor(catalogCfg.Extraction.Timeout, catalogCfg.Extraction.UserAgent)
	}
	feeds := make([]catalog.Feed, 0, len(catalogCfg.Feeds))
	for _, f := range catalogCfg.Feeds {
		feeds = append(feeds, catalog.Feed{Name: f.Name, URL: f.URL, Tags: f.Tags})
	}
	manager := catalog.NewManager(catalog.Params{
		Feeds:          feeds,
		UpdateInterval: catalogCfg.UpdateInterval,
		MaxConcurrent:  catalogCfg.MaxConcurrent,
		ExtractPages:   catalogCfg.Extraction.Enabled,
	}, catalog.NewFeedFetcher(30*time.Second), pages, repos.Recipe)

	if len(feeds) > 0 {
		go func() {
			if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[WARN] catalog manager stopped: %v", err)
			}
		}()
	}

	chef := llm.NewChef(cfg.GetLLMConfig())
	if !chef.Enabled() {
		log.Print("[INFO] recipe generation disabled, no LLM model configured")
	}

	srv := server.New(server.Deps{
		Config:      cfg,
		Preferences: repos.Preference,
		Extractor:   extractor,
		Profiler:    profiler,
		Resolver:    resolver,
		Pantry:      repos.Pantry,
		Recipes:     repos.Recipe,
		Suggester:   manager,
		Chef:        chef,
	}, revision, opts.Debug)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	var filtered []string
	for _, s := range secs {
		if s != "" {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > 0 {
		logOpts = append(logOpts, lgr.Secret(filtered...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
