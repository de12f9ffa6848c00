package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goshard/internal/config"
	"github.com/dbsmedya/goshard/internal/database"
	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/sharding"
)

var validatePing bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and optionally check connectivity",
	Long: `Validate checks the configuration file and prints the resulting
sharding layout.

Checks performed:
  - Configuration syntax and required fields
  - Data source groups and entity rules
  - Physical table names for sharded entities
  - Database connectivity (with --ping)

Example:
  goshard validate --config goshard.yaml --ping`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validatePing, "ping", false, "Connect to every data source and ping it")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", GetConfigFile())

	if err := cfg.Validate(); err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs {
				cmd.Printf("❌ %s\n", verr.Error())
			}
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gate := sharding.NewGate()
	if err := sharding.InitFromConfig(gate, cfg); err != nil {
		return err
	}
	provider, err := gate.Provider()
	if err != nil {
		return err
	}

	cmd.Printf("Data sources: %d\n\n", len(cfg.DataSources))
	for _, group := range provider.Groups() {
		cmd.Printf("--- Group: %s ---\n", group)
		for _, ds := range provider.DataSources(group) {
			cmd.Printf("   %s (%s, %s)\n", ds.Name, ds.Type, ds.Role)
		}
	}

	hasErrors := false
	if rules := provider.EntityRules(); len(rules) > 0 {
		cmd.Printf("\nEntities: %d\n", len(rules))
		for _, rule := range rules {
			tables, err := provider.PhysicalTables(rule.Entity)
			if err != nil {
				cmd.Printf("❌ %s: %v\n", rule.Entity, err)
				hasErrors = true
				continue
			}
			cmd.Printf("   %s -> %s [%s] %v\n", rule.Entity, rule.Group, rule.Strategy, tables)
		}
	}
	if hasErrors {
		return fmt.Errorf("validation failed for one or more entities")
	}

	if validatePing {
		if err := pingDataSources(cmd.Context(), provider, cfg); err != nil {
			return err
		}
		cmd.Printf("\n✅ All data sources reachable\n")
	}

	cmd.Println("\n=== Validation Complete ===")
	return nil
}

func pingDataSources(ctx context.Context, provider sharding.Provider, cfg *config.Config) error {
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbManager := database.NewManager(provider, nil, nil, log)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	return nil
}
