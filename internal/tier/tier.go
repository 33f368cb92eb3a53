// Package tier defines the purchasable package levels and their quotas.
//
// A Table is read-only configuration. The lifecycle engine and the
// entitlement calculator receive it explicitly so tests can substitute
// fixture tiers. The production table is authored in CUE (tiers.cue) and
// embedded into the binary; Load reads an operator-supplied replacement.
package tier

import (
	"fmt"
	"time"
)

// ID identifies a tier.
type ID string

const (
	Trial    ID = "trial"
	Standard ID = "standard"
	Premium  ID = "premium"
	Archive  ID = "archive"
)

// DomainPolicy says whether a tier offers a custom domain.
type DomainPolicy string

const (
	// DomainNone means no custom domain, only the generated slug.
	DomainNone DomainPolicy = "none"
	// DomainAddon means the domain is optional at checkout.
	DomainAddon DomainPolicy = "addon"
	// DomainRequired means checkout must supply a domain.
	DomainRequired DomainPolicy = "required"
)

// Package is a purchasable extension.
type Package struct {
	Days        int  `json:"days"`
	Price       int  `json:"price"`
	Recommended bool `json:"recommended"`
	Best        bool `json:"best"`
}

// Template is a page template available to a tier.
type Template struct {
	ID string `json:"id"`

	// Locked templates gate the page behind a PIN and need a PIN, target
	// name, and message at checkout.
	Locked bool `json:"locked"`

	// Timeline templates render an ordered list of timeline entries and need
	// at least one.
	Timeline bool `json:"timeline"`
}

// Tier is one row of the tier table.
type Tier struct {
	ID               ID           `json:"id"`
	Name             string       `json:"name"`
	Price            int          `json:"price"`
	BaseDurationDays int          `json:"base_duration_days"`
	FreeTextEdits    int          `json:"free_text_edits"`
	FreeImageEdits   int          `json:"free_image_edits"`
	TextEditPrice    int          `json:"text_edit_price"`
	ImageEditPrice   int          `json:"image_edit_price"`
	MaxImages        int          `json:"max_images"`
	CustomDomain     DomainPolicy `json:"custom_domain"`
	Templates        []Template   `json:"templates"`
	Extensions       []Package    `json:"extensions"`
}

// BaseDuration is the validity window granted on approval.
func (t Tier) BaseDuration() time.Duration {
	return Days(t.BaseDurationDays)
}

// Package returns the extension package with the given day count.
func (t Tier) Package(days int) (Package, bool) {
	for _, p := range t.Extensions {
		if p.Days == days {
			return p, true
		}
	}
	return Package{}, false
}

// Template returns the template with the given id.
func (t Tier) Template(id string) (Template, bool) {
	for _, tpl := range t.Templates {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}

// OffersCustomDomain reports whether a domain can be attached at checkout.
func (t Tier) OffersCustomDomain() bool {
	return t.CustomDomain == DomainAddon || t.CustomDomain == DomainRequired
}

// Days converts a day count to a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

// Table is the immutable tier configuration.
type Table struct {
	specialLinkPrice int
	tiers            map[ID]Tier
	order            []ID
}

// NewTable builds a table from tiers in display order.
// Returns an error on duplicate or empty ids.
func NewTable(specialLinkPrice int, tiers ...Tier) (*Table, error) {
	if specialLinkPrice < 0 {
		return nil, fmt.Errorf("special link price must be non-negative, got %d", specialLinkPrice)
	}
	t := &Table{
		specialLinkPrice: specialLinkPrice,
		tiers:            make(map[ID]Tier, len(tiers)),
	}
	for _, tr := range tiers {
		if tr.ID == "" {
			return nil, fmt.Errorf("tier id is required")
		}
		if _, dup := t.tiers[tr.ID]; dup {
			return nil, fmt.Errorf("duplicate tier %q", tr.ID)
		}
		if tr.CustomDomain == "" {
			tr.CustomDomain = DomainNone
		}
		t.tiers[tr.ID] = tr
		t.order = append(t.order, tr.ID)
	}
	return t, nil
}

// MustTable is NewTable that panics on error. For fixtures.
func MustTable(specialLinkPrice int, tiers ...Tier) *Table {
	t, err := NewTable(specialLinkPrice, tiers...)
	if err != nil {
		panic(err)
	}
	return t
}

// Get returns the tier with the given id.
func (t *Table) Get(id ID) (Tier, bool) {
	tr, ok := t.tiers[id]
	return tr, ok
}

// All returns tiers in display order.
func (t *Table) All() []Tier {
	out := make([]Tier, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.tiers[id])
	}
	return out
}

// SpecialLinkPrice is the flat add-on price for a special link.
func (t *Table) SpecialLinkPrice() int {
	return t.specialLinkPrice
}
