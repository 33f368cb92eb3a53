package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/engine"
	"github.com/roach88/storypage/internal/order"
)

// EditOptions holds flags for the edit commands.
type EditOptions struct {
	*RootOptions
	Message    string
	SignOff    string
	TargetName string
	PIN        string
	Timeline   string
}

// NewEditCommand creates the edit command group.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit an approved page",
		Long: `Edit the text, timeline, or images of an approved page. Each edit uses
one free edit of its kind, or an approved paid edit once the free ones
are gone.`,
	}

	text := opCommand(rootOpts, "text <id>", "Replace the message, sign-off, target name, and PIN", "text edited",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.EditText(cmd.Context(), id, engine.TextEdit{
				Message:    opts.Message,
				SignOff:    opts.SignOff,
				TargetName: opts.TargetName,
				PIN:        opts.PIN,
			})
		})
	text.Flags().StringVar(&opts.Message, "message", "", "page message")
	text.Flags().StringVar(&opts.SignOff, "signoff", "", "sign-off line")
	text.Flags().StringVar(&opts.TargetName, "target", "", "recipient name")
	text.Flags().StringVar(&opts.PIN, "pin", "", "4-digit PIN for locked templates")

	timeline := opCommand(rootOpts, "timeline <id>", "Replace the timeline entries", "timeline edited",
		func(cmd *cobra.Command, a *app, id string) error {
			entries, err := loadTimeline(opts.Timeline)
			if err != nil {
				return err
			}
			return a.engine.EditTimeline(cmd.Context(), id, engine.TimelineEdit{Timeline: entries})
		})
	timeline.Flags().StringVar(&opts.Timeline, "file", "", "YAML list of timeline entries (required)")
	_ = timeline.MarkFlagRequired("file")

	images := &cobra.Command{
		Use:   "images <id> <file>...",
		Short: "Replace the page images",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args[1:])
			if err != nil {
				return err
			}
			return withApp(rootOpts, cmd, func(a *app) error {
				if err := a.engine.EditImages(cmd.Context(), args[0], files); err != nil {
					return err
				}
				return formatter(rootOpts, cmd).Success(OpResult{Op: "images edited", ID: args[0]})
			})
		},
	}

	cmd.AddCommand(text, timeline, images)
	return cmd
}

// KindOptions holds the --kind flag of the paid-edit commands.
type KindOptions struct {
	*RootOptions
	Kind string
	Slip string
}

// NewPaidEditCommand creates the paid-edit command group.
func NewPaidEditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paid-edit",
		Short: "Request and review paid edits",
	}

	reqOpts := &KindOptions{RootOptions: rootOpts}
	request := opCommand(rootOpts, "request <id>", "Request one paid edit", "paid edit requested",
		func(cmd *cobra.Command, a *app, id string) error {
			var slip blobstore.File
			if reqOpts.Slip != "" {
				f, err := readFile(reqOpts.Slip)
				if err != nil {
					return err
				}
				slip = f
			}
			return a.engine.RequestPaidEdit(cmd.Context(), id, order.EditKind(reqOpts.Kind), slip)
		})
	kindFlag(request, reqOpts)
	request.Flags().StringVar(&reqOpts.Slip, "slip", "", "proof of payment file (required)")

	approveOpts := &KindOptions{RootOptions: rootOpts}
	approve := opCommand(rootOpts, "approve <id>", "Approve the pending paid edit", "paid edit approved",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.ApprovePaidEdit(cmd.Context(), id, order.EditKind(approveOpts.Kind))
		})
	kindFlag(approve, approveOpts)

	rejectOpts := &KindOptions{RootOptions: rootOpts}
	reject := opCommand(rootOpts, "reject <id>", "Reject the pending paid edit", "paid edit rejected",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.RejectPaidEdit(cmd.Context(), id, order.EditKind(rejectOpts.Kind))
		})
	kindFlag(reject, rejectOpts)

	cmd.AddCommand(request, approve, reject)
	return cmd
}

func kindFlag(cmd *cobra.Command, opts *KindOptions) {
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "edit kind (text|image)")
	_ = cmd.MarkFlagRequired("kind")
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		if _, err := order.ParseEditKind(opts.Kind); err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

// NewDomainCommand creates the domain command group.
func NewDomainCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage custom domains",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "assign <id> <domain>",
		Short: "Serve an order under a custom domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				if err := a.engine.AssignCustomDomain(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				return formatter(opts, cmd).Success(OpResult{
					Op: fmt.Sprintf("domain %s assigned", args[1]),
					ID: args[0],
				})
			})
		},
	})
	return cmd
}
