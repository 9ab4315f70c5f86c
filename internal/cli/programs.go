package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"auber_controller/internal/program"
	"auber_controller/internal/service"

	"github.com/spf13/cobra"
)

type exportOptions struct {
	Out string
}

func newProgramsCmd(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "programs",
		Short: "Manage the stored program library",
	}
	cmd.AddCommand(newProgramsListCmd(opts))
	cmd.AddCommand(newProgramsImportCmd(opts))
	cmd.AddCommand(newProgramsExportCmd(opts))
	return cmd
}

func newProgramsListCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrograms(cmd.Context(), opts, func(ctx context.Context, ps *service.ProgramService) error {
				return runProgramsList(ctx, ps, cmd.OutOrStdout())
			})
		},
	}
}

func newProgramsImportCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import programs from a YAML file",
		Long: `Reads a YAML file of the form

  programs:
    - name: Anneal
      slots:
        - {operation: Ramp, target_c: 400, duration_hours: 1}
        - {operation: Soak, target_c: 400, duration_hours: 2}

Every program is validated before any is stored; existing programs with the same name are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrograms(cmd.Context(), opts, func(ctx context.Context, ps *service.ProgramService) error {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				n, err := ps.Import(ctx, f)
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d program(s)\n", n)
				return nil
			})
		},
	}
}

func newProgramsExportCmd(opts *GlobalOptions) *cobra.Command {
	eopts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export [NAME...]",
		Short: "Export programs as YAML",
		Long:  "Writes the named programs, or all of them when no name is given, in the import format.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPrograms(cmd.Context(), opts, func(ctx context.Context, ps *service.ProgramService) error {
				w := cmd.OutOrStdout()
				if eopts.Out != "" {
					f, err := os.Create(eopts.Out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return ps.Export(ctx, w, args...)
			})
		},
	}

	cmd.Flags().StringVarP(&eopts.Out, "out", "o", "", "Write to this file instead of stdout")

	return cmd
}

// withPrograms opens the store for a one-shot library command.
func withPrograms(ctx context.Context, opts *GlobalOptions, fn func(context.Context, *service.ProgramService) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	conn, repos, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, service.NewProgramService(repos.ProgramRepo, cfg.Instrument))
}

func runProgramsList(ctx context.Context, ps *service.ProgramService, out io.Writer) error {
	recs, err := ps.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "no programs stored")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTEPS\tHOURS")
	for _, rec := range recs {
		steps, err := rec.StepsOf()
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\tinvalid: %v\n", rec.Name, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", rec.Name, len(steps), totalHours(steps))
	}
	return tw.Flush()
}

func totalHours(steps []program.Step) float64 {
	var h float64
	for _, s := range steps {
		h += s.DurationHours
	}
	return h
}
