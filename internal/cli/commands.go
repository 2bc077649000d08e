// Package cli implements the simbridge command line: running the demo
// simulator against a platform, checking interface descriptors and serving
// the local platform emulator.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/simbridge/simbridge/internal/common/logtrace"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version is set at build time.
var Version = "v0.1.0"

// ErrAlreadyHandled is returned by commands that already printed their error.
var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var warnLabel = color.New(color.FgYellow)
var errorLabel = color.New(color.FgRed)
var headingLabel = color.New(color.FgHiMagenta, color.Bold)

type globalOptions struct {
	configFile string
	jsonOutput bool
	yamlOutput bool
	verbose    bool
}

// printStructured writes data as JSON or YAML when one of the output flags is
// set and reports whether it did. JSON wins when both are given.
func (o *globalOptions) printStructured(w io.Writer, data any) (bool, error) {
	switch {
	case o.jsonOutput:
		return true, printJSON(w, data)
	case o.yamlOutput:
		return true, printYAML(w, data)
	}
	return false, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "simbridge [command] [flags]",
		Short: "simbridge connects simulators to a training platform",
		Long: `simbridge registers a simulator with a training platform and drives its
session: every step the simulator state is sent and the platform answers with
the next event.

Examples:
  # Run the thermostat demo for three episodes
  simbridge run -i thermostat.yaml --episodes 3

  # Check an interface descriptor
  simbridge check-interface -f thermostat.yaml

  # Serve a local platform emulator
  simbridge emulate --port 8480`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logtrace.InitLogger(opts.verbose)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "", "", "Path to a TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&opts.yamlOutput, "yaml", "y", false, "Output in YAML format")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(newVersionCmd(opts))
	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newCheckInterfaceCmd(opts))
	rootCmd.AddCommand(newEmulateCmd(opts))
	return rootCmd
}

// Execute runs the root command and exits non-zero on error. This is called
// by main.main().
func Execute() {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, ErrAlreadyHandled) {
		jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json")
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(1)
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of simbridge",
		Run: func(cmd *cobra.Command, args []string) {
			if ok, _ := opts.printStructured(cmd.OutOrStdout(), map[string]string{"version": Version}); ok {
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "simbridge %s\n", Version)
		},
	}
}

func printJSON(w io.Writer, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to format JSON output: %w", err)
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}

func printYAML(w io.Writer, data any) error {
	yamlBytes, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to convert to YAML: %w", err)
	}
	fmt.Fprint(w, string(yamlBytes))
	return nil
}
