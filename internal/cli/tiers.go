package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/storypage/internal/config"
	"github.com/roach88/storypage/internal/tier"
)

// TiersResult is the output of the tiers command.
type TiersResult struct {
	SpecialLinkPrice int         `json:"special_link_price"`
	Tiers            []tier.Tier `json:"tiers"`
}

// WriteText implements TextWriter.
func (r TiersResult) WriteText(w io.Writer) error {
	for _, t := range r.Tiers {
		fmt.Fprintf(w, "%s (%s): price %d, %d days, free edits %d text / %d image, paid edits %d / %d, max images %d, custom domain %s\n",
			t.ID, t.Name, t.Price, t.BaseDurationDays,
			t.FreeTextEdits, t.FreeImageEdits, t.TextEditPrice, t.ImageEditPrice,
			t.MaxImages, t.CustomDomain)

		templates := make([]string, len(t.Templates))
		for i, tpl := range t.Templates {
			templates[i] = tpl.ID
			if tpl.Locked {
				templates[i] += " (locked)"
			}
			if tpl.Timeline {
				templates[i] += " (timeline)"
			}
		}
		fmt.Fprintf(w, "  templates:  %s\n", strings.Join(templates, ", "))

		for _, p := range t.Extensions {
			var tags []string
			if p.Recommended {
				tags = append(tags, "recommended")
			}
			if p.Best {
				tags = append(tags, "best value")
			}
			line := fmt.Sprintf("  extension:  %d days, price %d", p.Days, p.Price)
			if len(tags) > 0 {
				line += " [" + strings.Join(tags, ", ") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
	_, err := fmt.Fprintf(w, "special link: price %d\n", r.SpecialLinkPrice)
	return err
}

// NewTiersCommand creates the tiers command. It reads only the tier table,
// not the store.
func NewTiersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List tiers, templates, and extension packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			table, err := loadTiers(cfg.Tiers.File)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load tiers", err)
			}
			return formatter(opts, cmd).Success(TiersResult{
				SpecialLinkPrice: table.SpecialLinkPrice(),
				Tiers:            table.All(),
			})
		},
	}
}
