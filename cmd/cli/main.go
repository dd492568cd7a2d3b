package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

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

var (
	cfgPath   string
	accountID string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "warden",
		Short: "Evaluate compliance rules against a cloud account inventory",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "warden.yaml", "Path to the warden config file")
	rootCmd.PersistentFlags().StringVarP(&accountID, "account", "a", "", "Account to operate on")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a full evaluation for an account",
		RunE:  runEvaluate,
	}
	findingsCmd := &cobra.Command{
		Use:   "findings",
		Short: "List the account's current findings",
		RunE:  runFindings,
	}
	rootCmd.AddCommand(evaluateCmd, findingsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type wiring struct {
	db         *sql.DB
	catalog    catalog.Service
	compliance compliance.Service
	evaluator  *engine.Evaluator
}

func wire(cmd *cobra.Command) (*wiring, error) {
	if accountID == "" {
		return nil, fmt.Errorf("--account is required")
	}

	cfg, err := config.LoadServerConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	catalogSt, err := catalogstore.NewStore(db)
	if err != nil {
		return nil, err
	}
	inventorySt, err := inventorystore.NewStore(db)
	if err != nil {
		return nil, err
	}
	findingSt, err := findingstore.NewStore(db)
	if err != nil {
		return nil, err
	}
	historySt, err := historystore.NewStore(db)
	if err != nil {
		return nil, err
	}

	var providerClient provider.Client
	if cfg.CredentialsPath != "" {
		registry, err := config.NewRegistry(cfg.CredentialsPath)
		if err == nil {
			if creds, err := registry.GetCredentials(cmd.Context(), cfg.Profile); err == nil && creds.Token != "" {
				providerClient = provider.NewClient(creds.Token)
			}
		}
	}

	catalogSvc := catalog.NewService(catalogSt)
	return &wiring{
		db:         db,
		catalog:    catalogSvc,
		compliance: compliance.NewService(findingSt, historySt, cfg.Evaluation.HistoryLimit),
		evaluator: engine.NewEvaluator(db, catalogSvc, inventorySt, findingSt, historySt, providerClient, engine.Settings{
			LiveCallConcurrency: cfg.Evaluation.LiveCallConcurrency,
			LiveCallTimeout:     time.Duration(cfg.Evaluation.LiveCallTimeoutSec) * time.Second,
		}),
	}, nil
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	w, err := wire(cmd)
	if err != nil {
		return err
	}
	defer w.db.Close()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	summary, err := w.evaluator.Run(ctx, accountID)
	if err != nil {
		return err
	}

	fmt.Printf("Account %s evaluated at %s\n", summary.AccountID, summary.RunAt.Format(time.RFC3339))
	fmt.Printf("  compliant:      %d\n", summary.Compliant)
	fmt.Printf("  non-compliant:  %d\n", summary.NonCompliant)
	fmt.Printf("  not applicable: %d\n", summary.NotApplicable)
	fmt.Printf("  acknowledged:   %d\n", summary.Acknowledged)
	if summary.Score != nil {
		fmt.Printf("  score:          %.2f\n", *summary.Score)
	} else {
		fmt.Printf("  score:          n/a\n")
	}
	return nil
}

func runFindings(cmd *cobra.Command, _ []string) error {
	w, err := wire(cmd)
	if err != nil {
		return err
	}
	defer w.db.Close()

	findings, err := w.compliance.ListFindings(cmd.Context(), accountID)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		fmt.Println("No findings. Run `warden evaluate` first.")
		return nil
	}
	for _, f := range findings {
		scope := f.ResourceID
		if scope == "" {
			scope = "account"
		}
		marker := " "
		if f.Acknowledged {
			marker = "A"
		}
		fmt.Printf("[%s] %-14s %-20s %s\n", marker, f.Status, scope, f.Detail)
	}
	return nil
}
