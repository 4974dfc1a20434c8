package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// provisionCmd copies bundled trained data into the writable data directory.
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Copy bundled trained data into the data directory",
	Long: `Copy <assets-dir>/<asset-path>/<language>.traineddata into the writable data
directory. An existing file is never overwritten.

Examples:
  roiscan provision
  roiscan provision --assets-dir ./assets --data-dir ~/.cache/roiscan/tessdata`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		prov := newProvisioner(cfg)

		res, err := prov.Ensure(cfg.Engine.Language)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.Copied {
			_, _ = fmt.Fprintf(out, "Provisioned %s (%d bytes)\n", res.Path, res.Bytes)
		} else {
			_, _ = fmt.Fprintf(out, "Already provisioned: %s\n", res.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
