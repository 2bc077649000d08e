package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/simulator"
	"github.com/simbridge/simbridge/pkg/config"
	"github.com/simbridge/simbridge/pkg/connector"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type runOptions struct {
	interfaceFile string
	retry         bool
	retryLimit    int
	episodes      int
	maxIdle       time.Duration
}

type runSummary struct {
	Simulator string          `json:"simulator" yaml:"simulator"`
	Workspace string          `json:"workspace" yaml:"workspace"`
	SessionID string          `json:"sessionId" yaml:"sessionId"`
	Stats     simulator.Stats `json:"stats" yaml:"stats"`
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	ropts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run -i <descriptor>",
		Short: "Run the thermostat demo simulator against the platform",
		Long: `Registers the thermostat simulator described by the interface file and
runs it until the requested number of episodes has finished or the process is
interrupted. The session is closed on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configFile)
			if err != nil {
				return err
			}
			log.Debug().Interface("config", cfg.Redacted()).Msg("loaded configuration")
			descriptor, err := readDescriptor(ropts.interfaceFile)
			if err != nil {
				return err
			}

			connOpts := []connector.Option{connector.WithVerbose(opts.verbose)}
			if cmd.Flags().Changed("retry") {
				connOpts = append(connOpts, connector.WithRetry(ropts.retry))
			}
			if cmd.Flags().Changed("retry-limit") {
				connOpts = append(connOpts, connector.WithRetryLimit(ropts.retryLimit))
			}

			summary := runSummary{Workspace: cfg.Workspace}
			summary.Simulator, _ = descriptor["name"].(string)
			err = connector.Run(cmd.Context(), cfg, descriptor, func(ctx context.Context, c *connector.Connector) error {
				var err error
				summary.Stats, err = simulator.Loop(ctx, c, simulator.NewThermostat(), simulator.LoopOptions{
					MaxEpisodes: ropts.episodes,
					MaxIdle:     ropts.maxIdle,
				})
				summary.SessionID = c.SessionID()
				return err
			}, connOpts...)
			if err != nil {
				return err
			}

			if ok, err := opts.printStructured(cmd.OutOrStdout(), summary); ok {
				return err
			}
			return printRunSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVarP(&ropts.interfaceFile, "interface", "i", "", "Interface descriptor file (YAML or JSON)")
	cmd.Flags().BoolVar(&ropts.retry, "retry", false, "Re-register when the platform unregisters the session")
	cmd.Flags().IntVar(&ropts.retryLimit, "retry-limit", config.DefaultRetryLimit, "Re-registrations allowed per step")
	cmd.Flags().IntVar(&ropts.episodes, "episodes", 1, "Stop after this many episodes, 0 to run until interrupted")
	cmd.Flags().DurationVar(&ropts.maxIdle, "max-idle", simulator.DefaultMaxIdle, "Longest wait on an idle event")
	cmd.MarkFlagRequired("interface")
	return cmd
}

func printRunSummary(w io.Writer, summary runSummary) error {
	title := cases.Title(language.English)
	headingLabel.Fprintf(w, "%s\n", title.String("run summary"))
	fmt.Fprintf(w, "%-12s%s\n", "Simulator:", summary.Simulator)
	fmt.Fprintf(w, "%-12s%s\n", "Session:", summary.SessionID)
	fmt.Fprintf(w, "%-12s%d\n", "Episodes:", summary.Stats.Episodes)
	fmt.Fprintf(w, "%-12s%d\n", "Steps:", summary.Stats.Steps)
	fmt.Fprintf(w, "%-12s%s\n", "Elapsed:", summary.Stats.Elapsed.Round(time.Millisecond))

	if len(summary.Stats.FinishReasons) == 0 {
		return nil
	}
	headingLabel.Fprintf(w, "%s\n", title.String("finish reasons"))
	reasons := make([]string, 0, len(summary.Stats.FinishReasons))
	for r := range summary.Stats.FinishReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		okLabel.Fprintf(w, "  %s: %d\n", r, summary.Stats.FinishReasons[r])
	}
	return nil
}
