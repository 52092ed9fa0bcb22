package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/exposure-tracker/constants"
	"github.com/joseph-ayodele/exposure-tracker/internal/blob"
	"github.com/joseph-ayodele/exposure-tracker/internal/common"
	"github.com/joseph-ayodele/exposure-tracker/internal/entity"
	"github.com/joseph-ayodele/exposure-tracker/internal/export"
	"github.com/joseph-ayodele/exposure-tracker/internal/limits"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/admin"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/imports"
	"github.com/joseph-ayodele/exposure-tracker/internal/services/samples"
)

func newTenantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenants"}
	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a tenant seeded with the configured limit catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog()
			if err != nil {
				return err
			}
			t, err := admin.NewService(a.repos, catalog, a.logger).CreateTenant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := admin.NewService(a.repos, nil, a.logger).ListTenants(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	})
	return cmd
}

func newProjectCmd(a *app) *cobra.Command {
	var client string
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			p, err := admin.NewService(a.repos, nil, a.logger).CreateProject(cmd.Context(), tenantID, args[0], client)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	add.Flags().StringVar(&client, "client", "", "client the project is performed for")
	cmd.AddCommand(add)
	return cmd
}

func newTaskCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			t, err := admin.NewService(a.repos, nil, a.logger).CreateTask(cmd.Context(), tenantID, args[0], description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	add.Flags().StringVar(&description, "description", "", "task description")
	cmd.AddCommand(add)
	return cmd
}

func newPersonnelCmd(a *app) *cobra.Command {
	var (
		employeeID string
		fitTest    string
		medical    string
		window     time.Duration
	)
	cmd := &cobra.Command{Use: "personnel", Short: "Manage personnel"}
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			p, err := admin.NewService(a.repos, nil, a.logger).CreatePersonnel(cmd.Context(), tenantID, admin.CreatePersonnelRequest{
				Name:                    args[0],
				EmployeeID:              employeeID,
				FitTestDueDate:          fitTest,
				MedicalClearanceDueDate: medical,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	add.Flags().StringVar(&employeeID, "employee-id", "", "employee id")
	add.Flags().StringVar(&fitTest, "fit-test-due", "", "fit test due date (YYYY-MM-DD)")
	add.Flags().StringVar(&medical, "medical-due", "", "medical clearance due date (YYYY-MM-DD)")

	certs := &cobra.Command{
		Use:   "certs",
		Short: "Report fit-test and medical-clearance status, workers needing attention first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			report, err := admin.NewService(a.repos, nil, a.logger).CertificationReport(cmd.Context(), tenantID, time.Now(), window)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	certs.Flags().DurationVar(&window, "window", 30*24*time.Hour, "due-soon window")
	cmd.AddCommand(add, certs)
	return cmd
}

func newLimitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "limits", Short: "Manage exposure limits"}
	cmd.AddCommand(&cobra.Command{
		Use:   "load FILE",
		Short: "Load an exposure-limit catalog (YAML) into the tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			catalog, err := limits.LoadYAML(args[0], a.logger)
			if err != nil {
				return err
			}
			n, err := admin.NewService(a.repos, nil, a.logger).LoadLimits(cmd.Context(), tenantID, catalog)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"loaded": n})
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "List the tenant's exposure limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			l, err := admin.NewService(a.repos, nil, a.logger).ListLimits(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), l)
		},
	})
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		sampleDate    string
		sheet         string
		strictAnalyte bool
	)
	run := func(kind constants.ImportKind) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			var svcOpts []imports.ServiceOption
			if strictAnalyte {
				svcOpts = append(svcOpts, imports.WithStrictAnalytes())
			}
			var opts []imports.Option
			if sampleDate != "" {
				opts = append(opts, imports.WithSampleDate(sampleDate))
			}
			if sheet != "" {
				opts = append(opts, imports.WithSheet(sheet))
			}
			rep, err := imports.NewService(a.repos, nil, a.logger, svcOpts...).ImportFile(cmd.Context(), tenantID, kind, args[0], opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		}
	}
	cmd := &cobra.Command{Use: "import", Short: "Import a TSV or XLSX file"}
	samplesCmd := &cobra.Command{
		Use:   "samples FILE",
		Short: "Import a sample log",
		Args:  cobra.ExactArgs(1),
		RunE:  run(constants.ImportSamples),
	}
	samplesCmd.Flags().StringVar(&sampleDate, "sample-date", "", "date (YYYY-MM-DD) for HH:mm start/stop times")
	samplesCmd.Flags().BoolVar(&strictAnalyte, "strict-analytes", false, "reject analytes missing from the tenant's limits")
	personnelCmd := &cobra.Command{
		Use:   "personnel FILE",
		Short: "Import a personnel roster",
		Args:  cobra.ExactArgs(1),
		RunE:  run(constants.ImportPersonnel),
	}
	cmd.PersistentFlags().StringVar(&sheet, "sheet", "", "worksheet name for XLSX files (default: first sheet)")
	cmd.AddCommand(samplesCmd, personnelCmd)
	return cmd
}

func newEvaluateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate SAMPLE_ID",
		Short: "Re-evaluate a stored sample against the tenant's current limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: sample id must be a UUID", common.ErrInvalidInput)
			}
			svc := samples.NewService(a.repos, nil, a.logger)
			stored, err := svc.Get(cmd.Context(), tenantID, id)
			if err != nil {
				return err
			}
			out, err := svc.Evaluate(cmd.Context(), tenantID, *stored)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out       string
		projectID string
		taskID    string
		publish   bool
	)
	cmd := &cobra.Command{Use: "export", Short: "Export workbooks"}
	samplesCmd := &cobra.Command{
		Use:   "samples",
		Short: "Export the sample log as XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := a.tenantID()
			if err != nil {
				return err
			}
			var filter entity.SampleFilter
			if filter.ProjectID, err = optionalID("project", projectID); err != nil {
				return err
			}
			if filter.TaskID, err = optionalID("task", taskID); err != nil {
				return err
			}
			data, err := export.NewService(a.repos, a.logger).SamplesXLSX(cmd.Context(), tenantID, filter)
			if err != nil {
				return err
			}
			result := map[string]any{"bytes": len(data)}
			if out != "" {
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				result["path"] = out
			}
			if publish {
				store, err := blob.Open(cmd.Context(), a.cfg.Blob)
				if err != nil {
					return err
				}
				info, err := export.Publish(cmd.Context(), store, export.SamplesKey(tenantID, time.Now()), data)
				if err != nil {
					return err
				}
				result["key"] = info.Key
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	samplesCmd.Flags().StringVarP(&out, "out", "o", "", "write the workbook to this path")
	samplesCmd.Flags().StringVar(&projectID, "project", "", "only samples of this project id")
	samplesCmd.Flags().StringVar(&taskID, "task", "", "only samples of this task id")
	samplesCmd.Flags().BoolVar(&publish, "publish", false, "store the workbook in the configured blob store")
	cmd.AddCommand(samplesCmd)
	return cmd
}

func optionalID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a UUID", common.ErrInvalidInput, field)
	}
	return &id, nil
}
