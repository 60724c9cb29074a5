package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"p3fes-translator/internal/analyzer"
	"p3fes-translator/internal/cache"
	"p3fes-translator/internal/config"
	"p3fes-translator/internal/extract"
	"p3fes-translator/internal/glossary"
	"p3fes-translator/internal/ledger"
	"p3fes-translator/internal/memory"
	"p3fes-translator/internal/reinject"
	"p3fes-translator/internal/tokenguard"
	"p3fes-translator/internal/translator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "p3fes-translator",
		Short: "Binary-aware EN→FR localization tool for Persona 3 FES",
		Long:  "Extracts English text from PM1/PAC/PAK/BF/TBL game files, translates it to French with a cached Gemini pipeline, and reinjects the results without breaking the binary layout.",
	}

	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(seedGlossaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func translateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <game-dir>",
		Short: "Translate game files in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategyName, _ := cmd.Flags().GetString("strategy")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			ledgerPath, _ := cmd.Flags().GetString("ledger")
			formatHint, _ := cmd.Flags().GetString("format")
			outputDir, _ := cmd.Flags().GetString("output-dir")

			strategy, err := reinject.ParseStrategy(strategyName)
			if err != nil {
				return err
			}
			return runTranslate(args[0], strategy, dryRun, ledgerPath, formatHint, outputDir)
		},
	}

	cmd.Flags().String("strategy", "testfirst", "Reinjection strategy: conservative, aggressive, safe, or testfirst")
	cmd.Flags().Bool("dry-run", false, "Translate and reinject in memory without writing files")
	cmd.Flags().String("ledger", "processed_files.json", "Processed-file ledger path (empty to disable)")
	cmd.Flags().String("format", "", "Force a parser instead of auto-detection: pm1, tbl, or block")
	cmd.Flags().String("output-dir", "reinjected", "Mirror reinjected files under this directory (empty to disable)")

	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <dir>",
		Short: "Classify the translation status of game files without modifying them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0])
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <dir> <out-dir>",
		Short: "Dump extracted text spans as JSON for inspection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args[0], args[1])
		},
	}
}

func seedGlossaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-glossary",
		Short: "Seed the Neo4j glossary with the Persona 3 FES terminology",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedGlossary()
		},
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// initDependencies creates all shared dependencies and verifies connectivity.
func initDependencies(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, neo4j.DriverWithContext, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
		pgPool.Close()
		neo4jDriver.Close(ctx)
		return nil, nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")

	return pgPool, neo4jDriver, nil
}

// runTranslate handles the `translate` command.
func runTranslate(gameDir string, strategy reinject.Strategy, dryRun bool, ledgerPath, formatHint, outputDir string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	defer neo4jDriver.Close(ctx)

	// Translation cache with TTL.
	translationCache := cache.New(pgPool, cfg.CacheTTL)
	if err := translationCache.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate translation cache: %w", err)
	}
	if err := translationCache.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}
	if pruned, err := translationCache.Prune(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to prune expired cache entries")
	} else if pruned > 0 {
		log.Info().Int64("pruned", pruned).Msg("Removed expired cache entries")
	}

	// Glossary terminology and the proper nouns to protect.
	glossaryStore := glossary.NewStore(neo4jDriver)
	terms, err := glossaryStore.All(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load glossary, continuing without terminology")
		terms = make(map[string]string)
	}
	guard := tokenguard.New(glossary.Nouns(terms))

	// Translation memory over pgvector.
	embeddingClient := memory.NewEmbeddingClient(cfg.TranslateAPIKey, cfg.EmbeddingModel, cfg.EmbeddingBaseURL, cfg.EmbeddingDimensions)
	translationMemory := memory.New(pgPool, embeddingClient, cfg.EmbeddingDimensions)
	if err := translationMemory.Migrate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to migrate translation memory, similarity context disabled")
		translationMemory = nil
	}

	// Gemini client with terminology and similar-translation context.
	client := translator.NewGeminiClient(cfg.TranslateAPIKey, cfg.TranslationModel)
	client.SetContextFunc(func(ctx context.Context, text string) string {
		var similar []string
		if translationMemory != nil {
			matches, err := translationMemory.Lookup(ctx, text, 3)
			if err != nil {
				log.Debug().Err(err).Msg("Translation memory lookup failed")
			}
			for _, m := range matches {
				similar = append(similar, fmt.Sprintf("%s → %s", m.Source, m.Translated))
			}
		}
		return translator.BuildContextString(glossary.TermsIn(terms, text), similar)
	})

	tr := translator.New(client, translationCache, translator.Options{
		SourceLocale:   cfg.SourceLocale,
		MaxAttempts:    cfg.RetryAttempts,
		BaseDelay:      cfg.RetryBaseDelay,
		AttemptTimeout: cfg.AttemptTimeout,
		OverallTimeout: cfg.OverallTimeout,
	})

	var fileLedger *ledger.Ledger
	if ledgerPath != "" {
		fileLedger, err = ledger.Load(ledgerPath)
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
	}

	an := analyzer.New(cfg.Heuristics)

	p := &pipeline{
		cfg:        cfg,
		analyzer:   an,
		extractor:  extract.New(an, cfg.Heuristics),
		guard:      guard,
		translator: tr,
		memory:     translationMemory,
		ledger:     fileLedger,
		strategy:   strategy,
		dryRun:     dryRun,
		formatHint: formatHint,
		outputDir:  outputDir,
		apiSem:     make(chan struct{}, cfg.MaxConcurrentAPICalls),
		pairs:      make(map[string]string),
	}

	return p.run(ctx, gameDir)
}

// runSeedGlossary handles the `seed-glossary` command.
func runSeedGlossary() error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	defer neo4jDriver.Close(ctx)

	store := glossary.NewStore(neo4jDriver)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure glossary schema: %w", err)
	}
	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("seed glossary: %w", err)
	}

	terms, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("read back glossary: %w", err)
	}

	log.Info().Int("terms", len(terms)).Msg("Glossary seeded")
	return nil
}
