package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/smazurov/palmcam/internal/api"
	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// probeReport is the machine-readable probe output.
type probeReport struct {
	Capabilities capture.DeviceCapabilities  `json:"capabilities"`
	Viability    capture.ErrorKind           `json:"viability"`
	Message      string                      `json:"message"`
	Modes        map[string][]v4l2.Candidate `json:"modes,omitempty"`
}

// CreateProbeCmd creates the probe command. opts is read when the command
// runs, after flags and config have been applied.
func CreateProbeCmd(opts func() *Options) *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report camera capabilities",
		Long: `Runs the same capability probe the server runs before acquiring a camera ` +
			`and lists the capture modes each V4L2 device offers. No stream is opened.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			o := opts()
			platform, err := o.Platform()
			if err != nil {
				return err
			}
			secure := func() bool { return api.SecureOrigin(o.Port, o.TLSCert != "" && o.TLSKey != "") }

			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			caps := capture.NewProber(platform, secure, nil).Probe(ctx)
			report := probeReport{
				Capabilities: caps,
				Viability:    caps.Viability(),
				Message:      caps.Viability().Message(),
				Modes:        map[string][]v4l2.Candidate{},
			}
			for _, d := range caps.Devices {
				if d.Path == "" {
					continue
				}
				modes, listErr := v4l2.ListCandidates(d.Path)
				if listErr != nil && !errors.Is(listErr, v4l2.ErrUnsupported) {
					fmt.Fprintf(os.Stderr, "warning: %s: %v\n", d.Path, listErr)
					continue
				}
				report.Modes[d.Path] = modes
			}

			if asJSON {
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printProbe(c.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Probe timeout")
	return cmd
}

func printProbe(w io.Writer, r probeReport) {
	caps := r.Capabilities
	fmt.Fprintf(w, "Secure context:  %v\n", caps.IsSecureContext)
	fmt.Fprintf(w, "Capture API:     %v\n", caps.HasCaptureAPI)
	fmt.Fprintf(w, "Capture device:  %v\n", caps.HasCaptureDevice)
	fmt.Fprintf(w, "Permission:      %s\n", caps.HasPermission)
	if r.Viability == capture.KindNone {
		fmt.Fprintln(w, "Ready:           yes")
	} else {
		fmt.Fprintf(w, "Ready:           no (%s)\n", r.Message)
	}

	for _, d := range caps.Devices {
		fmt.Fprintf(w, "\n%s", d.Name)
		if d.Path != "" {
			fmt.Fprintf(w, " [%s]", d.Path)
		}
		fmt.Fprintf(w, "\n  id: %s\n", d.ID)
		for _, m := range r.Modes[d.Path] {
			format := v4l2.FormatFourCC(m.PixelFormat)
			if m.Emulated {
				format += " (emulated)"
			}
			size := "any size"
			if m.Size.Discrete() {
				size = fmt.Sprintf("%dx%d", m.Size.MinWidth, m.Size.MinHeight)
			} else if m.Size.MaxWidth > 0 {
				size = fmt.Sprintf("%dx%d..%dx%d", m.Size.MinWidth, m.Size.MinHeight, m.Size.MaxWidth, m.Size.MaxHeight)
			}
			fmt.Fprintf(w, "  %-18s %-22s", format, size)
			for _, rate := range m.Rates {
				fmt.Fprintf(w, " %.4gfps", rate.FPS())
			}
			fmt.Fprintln(w)
		}
	}
}
