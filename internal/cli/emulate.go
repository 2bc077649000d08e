package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/simbridge/simbridge/internal/emulator"
	"github.com/simbridge/simbridge/pkg/config"
	"github.com/spf13/cobra"
)

type emulateOptions struct {
	host          string
	port          int
	accessKey     string
	episodeLength int
	idleEvery     int
	callbackTime  float64
	revokeAfter   int
}

func newEmulateCmd(opts *globalOptions) *cobra.Command {
	eopts := &emulateOptions{}
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Serve a local platform emulator",
		Long: `Serves the simulator session API in memory. Sessions idle once and then run
episodes of a fixed length, stepping with a bang-bang heater policy suited to
the thermostat demo. Use --revoke-after to exercise re-registration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accessKey := eopts.accessKey
			if accessKey == "" {
				accessKey = os.Getenv(config.EnvAccessKey)
			}

			newScenario := emulator.Episodic(emulator.EpisodicScenario{
				EpisodeLength: eopts.episodeLength,
				IdleEvery:     eopts.idleEvery,
				CallbackTime:  eopts.callbackTime,
				Config:        map[string]any{},
				Action:        emulator.BangBang("temperature", "target", "heater_power"),
			})
			if eopts.revokeAfter > 0 {
				newScenario = emulator.RevokeAfter(eopts.revokeAfter, "revoked by emulator", newScenario)
			}
			e := emulator.New(emulator.WithAccessKey(accessKey), emulator.WithScenario(newScenario))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ready := make(chan string, 1)
			go func() {
				select {
				case addr := <-ready:
					if opts.jsonOutput {
						printJSON(cmd.OutOrStdout(), map[string]string{"address": addr})
						return
					}
					okLabel.Fprintf(cmd.OutOrStdout(), "emulator listening on %s\n", addr)
				case <-ctx.Done():
				}
			}()
			return e.ListenAndServe(ctx, net.JoinHostPort(eopts.host, strconv.Itoa(eopts.port)), ready)
		},
	}

	cmd.Flags().StringVar(&eopts.host, "host", "localhost", "Interface to listen on")
	cmd.Flags().IntVarP(&eopts.port, "port", "p", 8480, "Port to listen on")
	cmd.Flags().StringVar(&eopts.accessKey, "access-key", "", fmt.Sprintf("Required access key (default $%s, empty disables auth)", config.EnvAccessKey))
	cmd.Flags().IntVar(&eopts.episodeLength, "episode-length", emulator.DefaultScenario.EpisodeLength, "Steps per episode")
	cmd.Flags().IntVar(&eopts.idleEvery, "idle-every", 0, "Idle after every n episodes, 0 to idle only at start")
	cmd.Flags().Float64Var(&eopts.callbackTime, "callback-time", emulator.DefaultScenario.CallbackTime, "Seconds a simulator waits on idle")
	cmd.Flags().IntVar(&eopts.revokeAfter, "revoke-after", 0, "Unregister every session after n advances, 0 to never")
	return cmd
}
