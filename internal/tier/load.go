package tier

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed tiers.cue
var defaultCUE []byte

// LoadError reports a problem in a tier file, with the CUE position when
// one is available.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the embedded production table.
func Default() (*Table, error) {
	return Parse("tiers.cue", defaultCUE)
}

// MustDefault is Default that panics on error. The embedded table is
// covered by tests, so a failure here is a build defect.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads a tier file from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier file: %w", err)
	}
	return Parse(path, data)
}

// Parse compiles CUE source, unifies it with the tier schema, and decodes
// the result into a Table.
func Parse(filename string, src []byte) (*Table, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(data)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	priceVal := v.LookupPath(cue.ParsePath("special_link_price"))
	price, err := priceVal.Int64()
	if err != nil {
		return nil, &LoadError{Field: "special_link_price", Message: "must be a concrete integer", Pos: priceVal.Pos()}
	}

	tiersVal := v.LookupPath(cue.ParsePath("tiers"))
	iter, err := tiersVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tiers []Tier
	for iter.Next() {
		var tr Tier
		if err := iter.Value().Decode(&tr); err != nil {
			return nil, &LoadError{
				Field:   "tiers." + iter.Label(),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		tiers = append(tiers, tr)
	}
	if len(tiers) == 0 {
		return nil, &LoadError{Field: "tiers", Message: "at least one tier is required", Pos: tiersVal.Pos()}
	}

	return NewTable(int(price), tiers...)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
