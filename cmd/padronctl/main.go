// Command padronctl bundles the operational one-shots: schema migration,
// census imports from a terminal, credential checks, operator token minting
// and the country-code remap used when identifier data predates the numeric
// country table.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"padron/internal/afipws"
	"padron/internal/identifier"
	"padron/internal/jwtauth"
	"padron/internal/party"
	"padron/internal/platform/config"
	"padron/internal/platform/logger"
	"padron/internal/registry"
	syncengine "padron/internal/sync"
	"padron/internal/ticket"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "padronctl",
		Short:         "Operational tooling for the taxpayer registry sync service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), syncCmd(), verifyCredentialCmd(), remapCountriesCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openPostgres(cfg config.Config) (*sql.DB, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("PADRON_POSTGRES_DSN is not set")
	}
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			db, err := openPostgres(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := party.NewPostgres(db).Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full census import over every stored party with a tax identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			log := logger.New()

			db, err := openPostgres(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			cert, key, err := cfg.Credential()
			if err != nil {
				return fmt.Errorf("load credential: %w", err)
			}
			cred := ticket.Credential{Certificate: cert, PrivateKey: key}

			store, err := ticket.NewFileStore(cfg.CacheDir)
			if err != nil {
				return fmt.Errorf("ticket cache: %w", err)
			}
			transport := afipws.NewHTTPTransport()
			auth, err := ticket.NewAuthenticator(store, afipws.NewOpenSSLSigner(), transport,
				ticket.AuthEndpointURL(cfg.Mode), ticket.WithLogger(log), ticket.WithTTL(cfg.TicketTTL))
			if err != nil {
				return err
			}

			opts := []syncengine.Option{
				syncengine.WithLogger(log),
				syncengine.WithForeignRegistry(identifier.NewPostgresForeignRegistry(db)),
				syncengine.WithWorkers(workers),
			}
			if cfg.TaxCodeFile != "" {
				table, err := syncengine.LoadCodeTable(cfg.TaxCodeFile)
				if err != nil {
					return fmt.Errorf("load tax code table: %w", err)
				}
				opts = append(opts, syncengine.WithCodeTable(table))
			}

			engine, err := syncengine.New(party.NewPostgres(db),
				afipws.NewRegistryClient(transport, cfg.RepresentedCUIT),
				auth, cred, cfg.Mode, opts...)
			if err != nil {
				return err
			}

			report, err := engine.SyncStored(cmd.Context())
			if err != nil {
				return err
			}
			updated, skipped, failed := report.Counts()
			fmt.Printf("batch %s: %d updated, %d skipped, %d failed in %s\n",
				report.ID, updated, skipped, failed,
				report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
			for _, o := range report.Outcomes {
				if o.Status == syncengine.StatusFailed {
					fmt.Printf("  failed %s (%s): %s\n", o.PartyID, o.Identifier, o.Reason)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d parties failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "concurrent parties per batch")
	return cmd
}

func verifyCredentialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-credential",
		Short: "Check that the configured certificate can obtain an access ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			log := logger.New()

			cert, key, err := cfg.Credential()
			if err != nil {
				return fmt.Errorf("load credential: %w", err)
			}
			cred := ticket.Credential{Certificate: cert, PrivateKey: key}

			store, err := ticket.NewFileStore(cfg.CacheDir)
			if err != nil {
				return fmt.Errorf("ticket cache: %w", err)
			}
			auth, err := ticket.NewAuthenticator(store, afipws.NewOpenSSLSigner(),
				afipws.NewHTTPTransport(), ticket.AuthEndpointURL(cfg.Mode),
				ticket.WithLogger(log), ticket.WithTTL(cfg.TicketTTL))
			if err != nil {
				return err
			}

			if err := auth.Verify(cmd.Context(), registry.Service, cred); err != nil {
				return fmt.Errorf("credential check failed: %w", err)
			}
			fmt.Println("credential ok:", cfg.Mode)
			return nil
		},
	}
}

// remapCountriesCmd rewrites stored foreign-identifier country codes using a
// yaml mapping file of old: new pairs. Run once after changing the country
// code scheme.
func remapCountriesCmd() *cobra.Command {
	var mappingFile string
	cmd := &cobra.Command{
		Use:   "remap-countries",
		Short: "Rewrite foreign identifier country codes from a yaml mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(mappingFile)
			if err != nil {
				return fmt.Errorf("read mapping: %w", err)
			}
			var mapping map[string]string
			if err := yaml.Unmarshal(raw, &mapping); err != nil {
				return fmt.Errorf("parse mapping: %w", err)
			}

			cfg := config.FromEnv()
			db, err := openPostgres(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			reg := identifier.NewPostgresForeignRegistry(db)
			var total int64
			for from, to := range mapping {
				n, err := reg.RemapCountry(cmd.Context(), from, to)
				if err != nil {
					return fmt.Errorf("remap %s to %s: %w", from, to, err)
				}
				fmt.Printf("%s -> %s: %d rows\n", from, to, n)
				total += n
			}
			fmt.Printf("remapped %d rows\n", total)
			return nil
		},
	}
	cmd.Flags().StringVar(&mappingFile, "mapping", "", "yaml file of old: new country codes")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

func tokenCmd() *cobra.Command {
	var operator string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator bearer token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			token, err := jwtauth.NewService(cfg.JWTSigningKey, "padron").GenerateToken(operator, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "admin", "operator name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}
