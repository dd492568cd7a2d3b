package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/cloud-warden/pkg/server"
	"github.com/de-tools/cloud-warden/pkg/services/catalog"
	"github.com/de-tools/cloud-warden/pkg/services/compliance"
	"github.com/de-tools/cloud-warden/pkg/services/config"
	"github.com/de-tools/cloud-warden/pkg/services/engine"
	"github.com/de-tools/cloud-warden/pkg/services/provider"
	"github.com/de-tools/cloud-warden/pkg/store/sqlite"
	catalogstore "github.com/de-tools/cloud-warden/pkg/store/sqlite/catalog"
	findingstore "github.com/de-tools/cloud-warden/pkg/store/sqlite/findings"
	historystore "github.com/de-tools/cloud-warden/pkg/store/sqlite/history"
	inventorystore "github.com/de-tools/cloud-warden/pkg/store/sqlite/inventory"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the cloud-warden compliance API server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "warden.yaml",
		"Path to the warden server config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadServerConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	catalogSt, err := catalogstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create catalog store: %w", err)
	}
	inventorySt, err := inventorystore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create inventory store: %w", err)
	}
	findingSt, err := findingstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create finding store: %w", err)
	}
	historySt, err := historystore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create history store: %w", err)
	}

	var providerClient provider.Client
	if cfg.CredentialsPath != "" {
		registry, err := config.NewRegistry(cfg.CredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to read provider credentials: %w", err)
		}
		creds, err := registry.GetCredentials(cmd.Context(), cfg.Profile)
		if err != nil {
			return fmt.Errorf("failed to resolve credential profile: %w", err)
		}
		if creds.Token != "" {
			providerClient = provider.NewClient(creds.Token)
			logger.Info().Str("profile", cfg.Profile).Msg("provider credential loaded, live checks enabled")
		}
	}
	if providerClient == nil {
		logger.Warn().Msg("no provider credential configured, live account checks will report not_applicable")
	}

	catalogSvc := catalog.NewService(catalogSt)
	complianceSvc := compliance.NewService(findingSt, historySt, cfg.Evaluation.HistoryLimit)
	evaluator := engine.NewEvaluator(db, catalogSvc, inventorySt, findingSt, historySt, providerClient, engine.Settings{
		LiveCallConcurrency: cfg.Evaluation.LiveCallConcurrency,
		LiveCallTimeout:     time.Duration(cfg.Evaluation.LiveCallTimeoutSec) * time.Second,
	})

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	web := server.NewWebAPI(logger, server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			Compliance: complianceSvc,
			Catalog:    catalogSvc,
			Evaluator:  evaluator,
		},
	})

	return web.Start()
}
