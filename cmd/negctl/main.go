package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	"github.com/negotiation-hub/negotiation-hub/internal/cli"
	"github.com/negotiation-hub/negotiation-hub/internal/config"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/store"
)

var rootCmd = &cobra.Command{
	Use:   "negctl",
	Short: "Negotiation hub admin CLI",
	Long: `negctl inspects the negotiation lifecycle ledger and rule tables.
Store settings come from the same environment as the server; flags and
NEGCTL_* variables override them.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("NEGCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("driver", "", "store driver: postgres, sqlite or memory")
	rootCmd.PersistentFlags().String("database-url", "", "postgres connection string")
	rootCmd.PersistentFlags().String("sqlite-path", "", "sqlite ledger file")
	rootCmd.PersistentFlags().Bool("verbose", false, "log store activity to stderr")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("database-url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(resourcesCmd())
	rootCmd.AddCommand(migrateCmd())
}

func rulesCmd() *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the transition tables and lifecycle policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if policyPath == "" {
				policyPath = os.Getenv("LIFECYCLE_POLICY_FILE")
			}
			policy, err := lifecycle.LoadPolicy(policyPath)
			if err != nil {
				return err
			}
			report := cli.BuildRulesReport(negotiation.DefaultNegotiationRules(), negotiation.DefaultResourceRules(), policy)
			return cli.RenderRules(cmd.OutOrStdout(), report, viper.GetBool("json"))
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "lifecycle policy YAML file")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <negotiation-id>",
		Short: "Print the ledger entries of a negotiation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s *store.Stores) error {
				entries, err := s.Ledger.History(ctx, args[0])
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("negotiation %s has no ledger entries", args[0])
				}
				return cli.RenderHistory(cmd.OutOrStdout(), cli.BuildHistory(entries), viper.GetBool("json"))
			})
		},
	}
}

func resourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources <negotiation-id>",
		Short: "Print the current state of every resource in a negotiation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s *store.Stores) error {
				latest, err := s.Ledger.LatestPerResource(ctx, args[0])
				if err != nil {
					return err
				}
				return cli.RenderResources(cmd.OutOrStdout(), cli.BuildResources(latest), viper.GetBool("json"))
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s *store.Stores) error {
				fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", s.Driver)
				return nil
			})
		},
	}
}

// withStores opens the configured stores, which also applies migrations.
func withStores(ctx context.Context, fn func(context.Context, *store.Stores) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := zerolog.Nop()
	if viper.GetBool("verbose") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	s, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("driver"); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	if v := viper.GetString("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := viper.GetString("sqlite-path"); v != "" {
		cfg.SQLitePath = v
	}
	return cfg, nil
}
