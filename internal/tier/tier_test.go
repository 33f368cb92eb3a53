package tier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 999, table.SpecialLinkPrice())

	var ids []ID
	for _, tr := range table.All() {
		ids = append(ids, tr.ID)
	}
	assert.ElementsMatch(t, []ID{Trial, Standard, Premium, Archive}, ids)
}

func TestDefault_TrialTier(t *testing.T) {
	trial, ok := MustDefault().Get(Trial)
	require.True(t, ok)

	assert.Equal(t, 3, trial.BaseDurationDays)
	assert.Equal(t, 72*time.Hour, trial.BaseDuration())
	assert.Equal(t, DomainNone, trial.CustomDomain)

	tpl, ok := trial.Template("locked-card")
	require.True(t, ok)
	assert.True(t, tpl.Locked)
	assert.False(t, tpl.Timeline)

	pkg, ok := trial.Package(7)
	require.True(t, ok)
	assert.Equal(t, 49, pkg.Price)
	assert.True(t, pkg.Recommended)
	assert.False(t, pkg.Best)
}

func TestDefault_StandardQuota(t *testing.T) {
	standard, ok := MustDefault().Get(Standard)
	require.True(t, ok)
	assert.Equal(t, 1, standard.FreeTextEdits)
	assert.Equal(t, 1, standard.FreeImageEdits)
}

func TestDefault_ArchiveRequiresDomain(t *testing.T) {
	archive, ok := MustDefault().Get(Archive)
	require.True(t, ok)
	assert.Equal(t, DomainRequired, archive.CustomDomain)
	assert.True(t, archive.OffersCustomDomain())
}

func TestParse_AppliesDefaults(t *testing.T) {
	src := `
special_link_price: 500
tiers: basic: {
	name: "Basic"
	price: 10
	base_duration_days: 5
	free_text_edits: 1
	free_image_edits: 0
	text_edit_price: 5
	image_edit_price: 5
	max_images: 2
	templates: [{id: "plain"}]
	extensions: [{days: 3, price: 5}]
}
`
	table, err := Parse("fixture.cue", []byte(src))
	require.NoError(t, err)

	basic, ok := table.Get("basic")
	require.True(t, ok)
	assert.Equal(t, ID("basic"), basic.ID)
	assert.Equal(t, DomainNone, basic.CustomDomain)
	assert.False(t, basic.Extensions[0].Best)
	assert.Equal(t, 500, table.SpecialLinkPrice())
}

func TestParse_RejectsConstraintViolation(t *testing.T) {
	src := `
special_link_price: 999
tiers: bad: {
	name: "Bad"
	price: -1
	base_duration_days: 5
	free_text_edits: 0
	free_image_edits: 0
	text_edit_price: 0
	image_edit_price: 0
	max_images: 0
	templates: [{id: "plain"}]
	extensions: []
}
`
	_, err := Parse("bad.cue", []byte(src))
	require.Error(t, err)
}

func TestParse_RejectsUnknownField(t *testing.T) {
	src := `
special_link_price: 999
tiers: bad: {
	name: "Bad"
	price: 1
	base_duration_days: 5
	free_text_edits: 0
	free_image_edits: 0
	text_edit_price: 0
	image_edit_price: 0
	max_images: 0
	templates: [{id: "plain"}]
	extensions: []
	colour: "red"
}
`
	_, err := Parse("bad.cue", []byte(src))
	require.Error(t, err)
}

func TestParse_RejectsMissingField(t *testing.T) {
	src := `
special_link_price: 999
tiers: bad: {
	name: "Bad"
	templates: [{id: "plain"}]
	extensions: []
}
`
	_, err := Parse("bad.cue", []byte(src))
	require.Error(t, err)
}

func TestParse_SyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse("broken.cue", []byte("tiers: {"))
	require.Error(t, err)

	var le *LoadError
	if assert.ErrorAs(t, err, &le) {
		assert.True(t, le.Pos.IsValid())
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.cue")
	require.NoError(t, os.WriteFile(path, defaultCUE, 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	_, ok := table.Get(Premium)
	assert.True(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable(999, Tier{ID: "a"}, Tier{ID: "a"})
	assert.Error(t, err)

	_, err = NewTable(999, Tier{})
	assert.Error(t, err)

	_, err = NewTable(-1)
	assert.Error(t, err)
}
