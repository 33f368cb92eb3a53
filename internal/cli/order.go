package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/engine"
	"github.com/roach88/storypage/internal/history"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// OrderFile is the YAML checkout read by the create command. File paths
// are relative to the order file.
type OrderFile struct {
	Tier         string        `yaml:"tier_id"`
	TemplateID   string        `yaml:"template_id"`
	Content      order.Content `yaml:"content"`
	CustomDomain string        `yaml:"custom_domain,omitempty"`
	PaymentSlip  string        `yaml:"payment_slip"`
	Images       []string      `yaml:"images,omitempty"`
}

// LoadOrderFile reads an order file and the files it names.
func LoadOrderFile(path string) (engine.CreateInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.CreateInput{}, fmt.Errorf("failed to read order file: %w", err)
	}

	var of OrderFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&of); err != nil {
		return engine.CreateInput{}, fmt.Errorf("failed to parse order file: %w", err)
	}

	dir := filepath.Dir(path)
	in := engine.CreateInput{
		Tier:         tier.ID(of.Tier),
		TemplateID:   of.TemplateID,
		Content:      of.Content,
		CustomDomain: of.CustomDomain,
	}
	if of.PaymentSlip != "" {
		if in.PaymentSlip, err = readFile(resolve(dir, of.PaymentSlip)); err != nil {
			return engine.CreateInput{}, err
		}
	}
	for _, p := range of.Images {
		f, err := readFile(resolve(dir, p))
		if err != nil {
			return engine.CreateInput{}, err
		}
		in.Images = append(in.Images, f)
	}
	return in, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// readFile loads an upload from disk. The blob keeps only the extension
// of the local name.
func readFile(path string) (blobstore.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return blobstore.File{}, WrapExitError(ExitCommandError, "failed to read upload", err)
	}
	return blobstore.File{Name: filepath.Base(path), Data: data}, nil
}

func readFiles(paths []string) ([]blobstore.File, error) {
	files := make([]blobstore.File, 0, len(paths))
	for _, p := range paths {
		f, err := readFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// CreateResult is the output of the create command.
type CreateResult struct {
	ID string `json:"id"`
}

// WriteText implements TextWriter.
func (r CreateResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "created order %s (pending review)\n", r.ID)
	return err
}

// NewCreateCommand creates the create command.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <order.yaml>",
		Short: "Submit a checkout",
		Long: `Validate a checkout, upload its payment slip and images, and store a
pending order.

Example order file:
  tier_id: standard
  template_id: classic-card
  payment_slip: slip.png
  images: [photo.jpg]
  content:
    message: Happy anniversary
    sign_off: Ploy
    target_name: Anna`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := LoadOrderFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid order file", err)
			}
			return withApp(opts, cmd, func(a *app) error {
				id, err := a.engine.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				return formatter(opts, cmd).Success(CreateResult{ID: id})
			})
		},
	}
}

// ShowResult is the output of the show command.
type ShowResult struct {
	*engine.View
	Now time.Time `json:"now"`
}

// WriteText implements TextWriter.
func (r ShowResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "order:    %s\n", r.Record.ID)
	fmt.Fprintf(w, "slug:     %s\n", r.Slug)
	fmt.Fprintf(w, "tier:     %s (%s)\n", r.Tier.ID, r.Tier.Name)
	fmt.Fprintf(w, "status:   %s\n", r.Status)
	fmt.Fprintf(w, "serving:  %t\n", r.Serving)
	switch {
	case r.ExpiresAt.IsZero():
		fmt.Fprintf(w, "expires:  -\n")
	case r.Expired:
		fmt.Fprintf(w, "expires:  %s (expired)\n", r.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "expires:  %s\n", r.ExpiresAt.Format(time.RFC3339))
	}
	for _, kind := range []order.EditKind{order.EditText, order.EditImage} {
		k := r.Entitlements.For(kind)
		fmt.Fprintf(w, "%-5s     used %d, free %d/%d, payment %s\n",
			kind, k.Used, k.FreeRemaining, k.FreeQuota, k.PaymentStatus)
	}
	fmt.Fprintln(w, "history:")
	return history.Write(w, r.History)
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|domain>",
		Short: "Show an order with its entitlements and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				v, err := a.engine.Summary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				if opts.Clock != nil {
					now = opts.Clock.Now()
				}
				return formatter(opts, cmd).Success(ShowResult{View: v, Now: now})
			})
		},
	}
}

// OpResult is the output of a mutating command.
type OpResult struct {
	Op string `json:"op"`
	ID string `json:"id"`
}

// WriteText implements TextWriter.
func (r OpResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", r.Op, r.ID)
	return err
}

// opCommand builds a command that runs one engine operation on an order
// and reports the operation name on success.
func opCommand(opts *RootOptions, use, short, op string, fn func(cmd *cobra.Command, a *app, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(a *app) error {
				if err := fn(cmd, a, args[0]); err != nil {
					return err
				}
				return formatter(opts, cmd).Success(OpResult{Op: op, ID: args[0]})
			})
		},
	}
}

// NewApproveCommand creates the approve command.
func NewApproveCommand(opts *RootOptions) *cobra.Command {
	return opCommand(opts, "approve <id>", "Approve an order and publish its page", "approved",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.Approve(cmd.Context(), id)
		})
}

// NewRejectCommand creates the reject command.
func NewRejectCommand(opts *RootOptions) *cobra.Command {
	return opCommand(opts, "reject <id>", "Reject an order's proof of payment", "rejected",
		func(cmd *cobra.Command, a *app, id string) error {
			return a.engine.Reject(cmd.Context(), id)
		})
}
