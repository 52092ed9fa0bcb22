package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/compliance"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	repo "github.com/joseph-ayodele/exposure-tracker/internal/repository"
	"github.com/joseph-ayodele/exposure-tracker/internal/server"
)

// app carries the state shared by every subcommand.
type app struct {
	verbose bool
	tenant  string

	cfg    *common.Config
	logger *slog.Logger
	db     *repo.DB
	repos  *repo.Repositories
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ihctl",
		Short:         "Industrial hygiene exposure tracker CLI",
		Long:          "ihctl imports monitoring data, evaluates samples against exposure limits\nand manages tenants, projects, tasks and personnel.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVarP(&a.tenant, "tenant", "t", os.Getenv("IHCTL_TENANT"), "tenant id (default $IHCTL_TENANT)")

	root.AddCommand(
		newTenantCmd(a),
		newProjectCmd(a),
		newTaskCmd(a),
		newPersonnelCmd(a),
		newLimitsCmd(a),
		newImportCmd(a),
		newEvaluateCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, logOut io.Writer) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	db, err := server.ConnectDB(ctx, cfg.Database, a.logger)
	if err != nil {
		return err
	}
	a.db = db
	a.repos = repo.NewRepositories(db, a.logger)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		server.CloseDB(a.db, a.logger)
		a.db = nil
	}
}

func (a *app) tenantID() (uuid.UUID, error) {
	raw := strings.TrimSpace(a.tenant)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: --tenant or IHCTL_TENANT is required", common.ErrInvalidInput)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: tenant must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

// catalog loads the configured limit catalog, or nil when none is configured.
func (a *app) catalog() (compliance.Limits, error) {
	if a.cfg == nil || a.cfg.Limits.CatalogPath == "" {
		return nil, nil
	}
	return limits.LoadYAML(a.cfg.Limits.CatalogPath, a.logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
