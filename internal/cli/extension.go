package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/engine"
)

// ExtensionOptions holds flags for the extension request command.
type ExtensionOptions struct {
	*RootOptions
	Days        int
	SpecialLink bool
	Slip        string
}

// NewExtensionCommand creates the extension command group.
func NewExtensionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extension",
		Short: "Request and review renewals",
	}
	cmd.AddCommand(newExtensionRequestCommand(rootOpts))
	cmd.AddCommand(opCommand(rootOpts, "approve <id>", "Approve the pending extension", "extension approved",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.ApproveExtension(cmd.Context(), id)
		}))
	cmd.AddCommand(opCommand(rootOpts, "reject <id>", "Reject the pending extension", "extension rejected",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.RejectExtension(cmd.Context(), id)
		}))
	return cmd
}

func newExtensionRequestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtensionOptions{RootOptions: rootOpts}

	cmd := opCommand(rootOpts, "request <id>", "Request an extension package", "extension requested",
		func(cmd *cobra.Command, a *app, id string) error {
			var slip blobstore.File
			if opts.Slip != "" {
				f, err := readFile(opts.Slip)
				if err != nil {
					return err
				}
				slip = f
			}
			return a.engine.RequestExtension(cmd.Context(), id, engine.ExtensionInput{
				Days:        opts.Days,
				SpecialLink: opts.SpecialLink,
				Slip:        slip,
			})
		})
	cmd.Long = `Request one of the tier's extension packages. The price is the
package price, plus the special link price with --special-link.

Example:
  storypage extension request AbC123xYz789QwE --days 30 --slip slip.png`

	cmd.Flags().IntVar(&opts.Days, "days", 0, "extension package day count (required)")
	cmd.Flags().BoolVar(&opts.SpecialLink, "special-link", false, "add the special link add-on")
	cmd.Flags().StringVar(&opts.Slip, "slip", "", "proof of payment file (required)")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}
