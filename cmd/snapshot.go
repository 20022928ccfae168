package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/spf13/cobra"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd(opts func() *Options) *cobra.Command {
	var output string
	var profile string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Acquire the camera and save one cropped still",
		Long: `Runs a full acquisition through the constraint ladder, captures one ` +
			`center-cropped JPEG and releases the camera.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if output == "" {
				return errors.New("output path is required")
			}
			o := opts()
			// A local CLI is its own trusted surface
			ctrl, err := o.NewController(nil, func() bool { return true })
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if profile != "" {
				ladder := ctrl.Ladder()
				i := slices.IndexFunc(ladder, func(p capture.ConstraintProfile) bool { return p.Name == profile })
				if i < 0 {
					return fmt.Errorf("unknown profile %q", profile)
				}
				if err := ctrl.SetLadder(ladder[i : i+1]); err != nil {
					return err
				}
			}

			if err := ctrl.Start(c.Context()); err != nil {
				return err
			}
			if ctrl.State() != capture.StateActive {
				d := ctrl.Diagnostics()
				return fmt.Errorf("acquisition failed: %s: %w", d.LastErrorText, ctrl.LastError())
			}

			frame, err := ctrl.Capture()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, frame.EncodedImage, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}

			d := ctrl.Diagnostics()
			fmt.Fprintf(c.OutOrStdout(), "Saved %s: %dx%d crop of %dx%d via %s\n",
				output, frame.CropRect.Width, frame.CropRect.Height,
				frame.SourceWidth, frame.SourceHeight, d.ActiveProfile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "palm.jpg", "Output JPEG file")
	cmd.Flags().StringVar(&profile, "profile", "", "Try only the named constraint profile")
	return cmd
}
