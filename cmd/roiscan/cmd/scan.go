package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/roiscan/internal/capture"
	"github.com/MeKo-Tech/roiscan/internal/region"
	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/transform"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan IMAGE",
	Short: "Read the text inside a region of an image",
	Long: `Run one scan over a still image as if it were a camera frame.

The region defaults to the configured initial scan region and is clamped to
the minimum region size.

Examples:
  roiscan scan label.png
  roiscan scan label.png --x 40 --y 120 --width 300 --height 80
  roiscan scan label.png --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rc := cfg.ToRegionConfig()
		for name, dst := range map[string]*int{
			"x": &rc.Initial.X, "y": &rc.Initial.Y, "width": &rc.Initial.Width, "height": &rc.Initial.Height,
		} {
			if cmd.Flags().Changed(name) {
				*dst, _ = cmd.Flags().GetInt(name)
			}
		}

		tc := cfg.ToTransformConfig()
		if cmd.Flags().Changed("luma") {
			luma, _ := cmd.Flags().GetString("luma")
			switch luma {
			case "bt601":
				tc.Luma = transform.LumaBT601
			case "bt709":
				tc.Luma = transform.LumaBT709
			default:
				return fmt.Errorf("invalid luma: %s (must be bt601 or bt709)", luma)
			}
		}

		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid format: %s (must be text or json)", format)
		}

		still, err := capture.LoadStill(args[0])
		if err != nil {
			return fmt.Errorf("failed to load image: %w", err)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		session := capture.NewSession(still, capture.StaticPermission(true))
		if err := session.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = session.Stop() }()

		eng := newEngine(cfg)
		defer eng.Shutdown()
		if err := eng.EnsureReady(ctx); err != nil {
			return errors.New(scan.FailureMessage(err))
		}

		orch := scan.New(session, region.NewController(rc), transform.New(tc), eng)
		res, err := orch.Scan(ctx)
		if err != nil {
			slog.Debug("Scan failed", "error", err)
			return errors.New(scan.FailureMessage(err))
		}

		out := cmd.OutOrStdout()
		if format == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		_, err = fmt.Fprintln(out, res.Message())
		return err
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Int("x", 0, "scan region left edge")
	scanCmd.Flags().Int("y", 0, "scan region top edge")
	scanCmd.Flags().Int("width", 0, "scan region width")
	scanCmd.Flags().Int("height", 0, "scan region height")
	scanCmd.Flags().String("luma", "bt601", "grayscale weights (bt601, bt709)")
	scanCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
}
