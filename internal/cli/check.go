package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/simbridge/simbridge/pkg/siminterface"
	"github.com/spf13/cobra"
)

type checkResult struct {
	File     string   `json:"file" yaml:"file"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

func newCheckInterfaceCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check-interface -f <descriptor>",
		Short: "Check an interface descriptor against the interface schema",
		Long: `Validates a simulator interface descriptor against the interface schema and
prints every violation. The platform does its own validation; this check only
surfaces mistakes early. Exits non-zero when there are warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := checkDescriptorFile(file)
			if err != nil {
				return err
			}
			result := checkResult{
				File:     file,
				Valid:    report.Valid(),
				Warnings: report.Warnings,
			}
			if result.Warnings == nil {
				result.Warnings = []string{}
			}

			out := cmd.OutOrStdout()
			if ok, err := opts.printStructured(out, result); ok {
				if err != nil {
					return err
				}
			} else if result.Valid {
				okLabel.Fprintf(out, "%s: interface is valid\n", file)
			} else {
				warnLabel.Fprintf(out, "%s: %d warning(s)\n", file, len(result.Warnings))
				for _, w := range result.Warnings {
					fmt.Fprintf(out, "  %s\n", w)
				}
			}
			if !result.Valid {
				return ErrAlreadyHandled
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Interface descriptor file (YAML or JSON)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// checkDescriptorFile checks JSON files as written, so syntax errors come back
// as warnings. Other files go through the YAML reader first.
func checkDescriptorFile(path string) (siminterface.Report, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return siminterface.Report{}, fmt.Errorf("unable to read descriptor: %w", err)
		}
		_, report := siminterface.CheckJSON(data)
		return report, nil
	}
	descriptor, err := readDescriptor(path)
	if err != nil {
		return siminterface.Report{}, err
	}
	return siminterface.Check(descriptor), nil
}
