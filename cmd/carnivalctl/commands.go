package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Dosada05/carnival-system/config"
	"github.com/Dosada05/carnival-system/db"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/Dosada05/carnival-system/services"
	"github.com/Dosada05/carnival-system/utils"
	"github.com/spf13/cobra"
)

// app bundles what every subcommand needs; close releases it.
type app struct {
	db            *sql.DB
	carnivals     *services.CarnivalService
	ownership     *services.OwnershipService
	registrations *services.RegistrationService
	logger        *slog.Logger
	close         func()
}

func openApp(ctx context.Context, verbose bool) (*app, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, err
	}

	var notifier services.Notifier = services.NopNotifier{}
	stopNotifier := func() {}
	if cfg.SMTPEnabled() {
		n := services.NewEmailNotifier(services.NewEmailService(cfg), services.DispatcherConfig{
			QueueSize:   cfg.Notify.QueueSize,
			RatePerSec:  cfg.Notify.RatePerSec,
			Timeout:     cfg.Notify.Timeout,
			MaxAttempts: cfg.Notify.MaxAttempts,
			PublicURL:   cfg.PublicURL,
		}, logger)
		n.Start(ctx)
		notifier, stopNotifier = n, n.Stop
	}

	return newApp(dbConn, notifier, logger, func() {
		stopNotifier()
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}), nil
}

func newApp(dbConn *sql.DB, notifier services.Notifier, logger *slog.Logger, closeFn func()) *app {
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	carnivalRepo := repositories.NewPostgresCarnivalRepository(dbConn)
	regRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	assignRepo := repositories.NewPostgresPlayerAssignmentRepository(dbConn)
	tx := repositories.NewPostgresTransactor(dbConn, logger)

	return &app{
		db:            dbConn,
		carnivals:     services.NewCarnivalService(tx, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, nil, logger),
		ownership:     services.NewOwnershipService(tx, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger),
		registrations: services.NewRegistrationService(tx, carnivalRepo, regRepo, assignRepo, userRepo, clubRepo, notifier, logger),
		logger:        logger,
		close:         closeFn,
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outcomeErr turns a failed manager outcome into a command error after printing the result.
func outcomeErr(cmd *cobra.Command, o services.Outcome, result interface{}) error {
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !o.Success {
		return fmt.Errorf("%s: %s", o.Kind, o.Message)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "carnivalctl",
		Short:         "Administrative tasks for the carnival system",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer a.close()
			return run(cmd, a, args)
		}
	}

	rootCmd.AddCommand(
		newMigrateCmd(withApp),
		newAdminClaimCmd(withApp),
		newRecalcFeesCmd(withApp),
		newRecountCmd(withApp),
		newImportCmd(withApp),
		newHashPasswordCmd(),
	)
	return rootCmd
}

type appRunner func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newMigrateCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if err := db.ApplySchema(cmd.Context(), a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		}),
	}
}

func newAdminClaimCmd(withApp appRunner) *cobra.Command {
	var carnivalID, adminID, clubID int
	cmd := &cobra.Command{
		Use:   "admin-claim",
		Short: "Assign an imported carnival to a club's primary delegate",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			res := a.ownership.AdminClaimOnBehalf(cmd.Context(), carnivalID, adminID, clubID)
			return outcomeErr(cmd, res.Outcome, res)
		}),
	}
	cmd.Flags().IntVar(&carnivalID, "carnival", 0, "carnival id")
	cmd.Flags().IntVar(&adminID, "admin", 0, "acting administrator's user id")
	cmd.Flags().IntVar(&clubID, "club", 0, "target club id")
	_ = cmd.MarkFlagRequired("carnival")
	_ = cmd.MarkFlagRequired("admin")
	_ = cmd.MarkFlagRequired("club")
	return cmd
}

func newRecalcFeesCmd(withApp appRunner) *cobra.Command {
	var registrationID int
	cmd := &cobra.Command{
		Use:   "recalc-fees",
		Short: "Re-derive the fee of one registration",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			res := a.registrations.RecalculateFees(cmd.Context(), registrationID)
			return outcomeErr(cmd, res.Outcome, res)
		}),
	}
	cmd.Flags().IntVar(&registrationID, "registration", 0, "registration id")
	_ = cmd.MarkFlagRequired("registration")
	return cmd
}

func newRecountCmd(withApp appRunner) *cobra.Command {
	var carnivalID int
	var all bool
	cmd := &cobra.Command{
		Use:   "recount",
		Short: "Repair the cached registration counter of one carnival, or of all with --all",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if all {
				repaired, err := a.carnivals.ReconcileCounters(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"repaired": repaired})
			}
			if carnivalID <= 0 {
				return fmt.Errorf("--carnival is required unless --all is set")
			}
			count, err := a.carnivals.RecountRegistrations(cmd.Context(), carnivalID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"carnival_id": carnivalID, "current_registrations": count})
		}),
	}
	cmd.Flags().IntVar(&carnivalID, "carnival", 0, "carnival id")
	cmd.Flags().BoolVar(&all, "all", false, "recount every active carnival")
	return cmd
}

type importSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func readFeed(r io.Reader) ([]services.ImportedCarnival, error) {
	var records []services.ImportedCarnival
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return records, nil
}

func newImportCmd(withApp appRunner) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert carnivals from an external feed file (JSON array)",
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := readFeed(f)
			if err != nil {
				return err
			}

			var summary importSummary
			for _, rec := range records {
				_, created, err := a.carnivals.UpsertImported(cmd.Context(), rec)
				switch {
				case err != nil:
					summary.Failed++
					summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", rec.ExternalID, err))
				case created:
					summary.Created++
				default:
					summary.Updated++
				}
			}
			a.logger.Info("import finished",
				slog.Int("created", summary.Created), slog.Int("updated", summary.Updated), slog.Int("failed", summary.Failed))
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", summary.Failed, len(records))
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the feed JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newHashPasswordCmd prints a bcrypt hash for seeding users.password_hash. The password is read from stdin.
func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			hash, err := utils.HashPassword(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
