package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storypage/internal/testutil"
)

const standardOrder = `tier_id: standard
template_id: classic-card
payment_slip: slip.png
images: [photo.jpg]
content:
  message: Happy anniversary
  sign_off: Ploy
  target_name: Anna
`

type cliFixture struct {
	dir    string
	config string
	clock  *testutil.ManualClock
	ids    *testutil.FixedIDs
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "storypage.yaml")
	cfg := "store:\n  path: " + filepath.Join(dir, "orders.db") + "\n" +
		"blobs:\n  root: " + filepath.Join(dir, "blobs") + "\n  base_url: http://blobs.test\n" +
		"log:\n  level: error\n"
	require.NoError(t, os.WriteFile(config, []byte(cfg), 0o644))

	f := &cliFixture{
		dir:    dir,
		config: config,
		clock:  testutil.NewManualClock(time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)),
		ids:    testutil.NewFixedIDs("ORDER0000000001", "ORDER0000000002"),
	}
	f.write(t, "slip.png", "slip")
	f.write(t, "photo.jpg", "photo")
	return f
}

func (f *cliFixture) write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (f *cliFixture) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts := &RootOptions{Clock: f.clock, IDs: f.ids}
	code := execute(opts, append([]string{"--config", f.config}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// mustRun fails the test unless the command exits successfully.
func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, stdout, stderr := f.run(t, args...)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)
	return stdout
}

func (f *cliFixture) create(t *testing.T) string {
	t.Helper()
	path := f.write(t, "order.yaml", standardOrder)
	out := f.mustRun(t, "create", path)
	require.Equal(t, "created order ORDER0000000001 (pending review)\n", out)
	return "ORDER0000000001"
}

func decodeResponse(t *testing.T, stdout string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	return resp
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "storypage", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"create"}, {"show"}, {"approve"}, {"reject"},
		{"extension", "request"}, {"extension", "approve"}, {"extension", "reject"},
		{"edit", "text"}, {"edit", "timeline"}, {"edit", "images"},
		{"paid-edit", "request"}, {"paid-edit", "approve"}, {"paid-edit", "reject"},
		{"domain", "assign"}, {"tiers"}, {"test"},
	}

	for _, path := range paths {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "storypage.yaml", configFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	f := newCLIFixture(t)
	code, _, stderr := f.run(t, "--format", "xml", "tiers")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid format")
}

func TestTiers(t *testing.T) {
	f := newCLIFixture(t)

	out := f.mustRun(t, "tiers")
	assert.Contains(t, out, "standard (Standard): price 199, 30 days")
	assert.Contains(t, out, "locked-card (locked)")
	assert.Contains(t, out, "extension:  365 days, price 699 [best value]")
	assert.Contains(t, out, "special link: price 999")

	resp := decodeResponse(t, f.mustRun(t, "--format", "json", "tiers"))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 999, data["special_link_price"])
	assert.Len(t, data["tiers"], 4)
}

func TestCreate_Errors(t *testing.T) {
	f := newCLIFixture(t)

	code, _, stderr := f.run(t, "create", filepath.Join(f.dir, "absent.yaml"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [COMMAND_ERROR]")

	noSlip := f.write(t, "noslip.yaml", strings.Replace(standardOrder, "payment_slip: slip.png\n", "", 1))
	code, _, stderr = f.run(t, "create", noSlip)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [MISSING_FIELD]")

	unknown := f.write(t, "unknown.yaml", standardOrder+"coupon: FREE\n")
	code, _, _ = f.run(t, "create", unknown)
	assert.Equal(t, ExitCommandError, code)
}

func TestLifecycle(t *testing.T) {
	f := newCLIFixture(t)
	id := f.create(t)

	assert.Equal(t, "approved: "+id+"\n", f.mustRun(t, "approve", id))

	f.clock.Advance(time.Hour)
	f.mustRun(t, "edit", "text", id, "--message", "Still here", "--signoff", "Ploy", "--target", "Anna")

	code, _, stderr := f.run(t, "edit", "text", id, "--message", "Again", "--signoff", "Ploy", "--target", "Anna")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [QUOTA_EXCEEDED]")

	slip := filepath.Join(f.dir, "slip.png")
	f.mustRun(t, "paid-edit", "request", id, "--kind", "text", "--slip", slip)
	f.mustRun(t, "paid-edit", "approve", id, "--kind", "text")
	f.mustRun(t, "edit", "text", id, "--message", "Final", "--signoff", "Ploy", "--target", "Anna")

	f.mustRun(t, "extension", "request", id, "--days", "30", "--slip", slip)
	f.mustRun(t, "extension", "approve", id)

	out := f.mustRun(t, "show", id)
	assert.Contains(t, out, "status:   approved")
	assert.Contains(t, out, "serving:  true")
	assert.Contains(t, out, "expires:  2026-04-15T08:00:00Z")
	assert.Contains(t, out, "text      used 2, free 0/1, payment approved")
	assert.Contains(t, out, "text_edit_payment\tapproved\tprice 49, applied")
	assert.Contains(t, out, "extension\tapproved\t30 days, price 99")

	resp := decodeResponse(t, f.mustRun(t, "--format", "json", "show", id))
	data := resp.Data.(map[string]any)
	assert.Equal(t, id, data["slug"])
	assert.Equal(t, false, data["expired"])
	assert.Equal(t, true, data["serving"])
	assert.Len(t, data["history"], 3)
}

func TestEditImagesAndTimeline(t *testing.T) {
	f := newCLIFixture(t)
	id := f.create(t)
	f.mustRun(t, "approve", id)

	photo := filepath.Join(f.dir, "photo.jpg")
	f.mustRun(t, "edit", "images", id, photo, photo)

	timeline := f.write(t, "timeline.yaml", "- date: \"2024-02-14\"\n  title: First date\n")
	f.mustRun(t, "edit", "timeline", id, "--file", timeline)

	out := f.mustRun(t, "show", id)
	assert.Contains(t, out, "image     used 1, free 0/1")
	assert.Contains(t, out, "text      used 1, free 0/1")
}

func TestShow_NotFound(t *testing.T) {
	f := newCLIFixture(t)

	code, _, stderr := f.run(t, "show", "nobody.example")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [NOT_FOUND]")

	code, stdout, _ := f.run(t, "--format", "json", "show", "nobody.example")
	assert.Equal(t, ExitFailure, code)
	resp := decodeResponse(t, stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
}

func TestRejections(t *testing.T) {
	f := newCLIFixture(t)
	id := f.create(t)

	code, stdout, _ := f.run(t, "--format", "json", "extension", "approve", id)
	assert.Equal(t, ExitFailure, code)
	resp := decodeResponse(t, stdout)
	assert.Equal(t, "NOT_APPROVED", resp.Error.Code)
	assert.Equal(t, map[string]any{"order_id": id, "field": "status"}, resp.Error.Details)

	f.mustRun(t, "approve", id)
	code, _, stderr := f.run(t, "domain", "assign", id, "anna.love")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [INVALID_FIELD]")

	code, _, _ = f.run(t, "paid-edit", "approve", id, "--kind", "video")
	assert.Equal(t, ExitCommandError, code)

	f.mustRun(t, "reject", id)
	out := f.mustRun(t, "show", id)
	assert.Contains(t, out, "status:   rejected")
	assert.Contains(t, out, "serving:  false")
}

func TestMetricsFlag(t *testing.T) {
	f := newCLIFixture(t)
	id := f.create(t)

	code, _, stderr := f.run(t, "--metrics", "approve", id)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, `storypage_operations_total{op="approve",outcome="ok"} 1`)
	assert.Contains(t, stderr, "storypage_operation_duration_seconds_count")
}

func TestTestCommand(t *testing.T) {
	f := newCLIFixture(t)
	scenarios, err := filepath.Glob("../harness/testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	out := f.mustRun(t, append([]string{"test", "--golden-dir", "../harness/testdata/golden"}, scenarios...)...)
	assert.Contains(t, out, "PASS  trial_extension")
	assert.Contains(t, out, "0 failed")

	golden := t.TempDir()
	f.mustRun(t, append([]string{"test", "--golden-dir", golden, "--update"}, scenarios...)...)
	assert.FileExists(t, filepath.Join(golden, "trial_extension.golden"))
	f.mustRun(t, append([]string{"test", "--golden-dir", golden}, scenarios...)...)
}

func TestTestCommand_Failures(t *testing.T) {
	f := newCLIFixture(t)
	failing := f.write(t, "failing.yaml", `name: failing
start: "2026-02-14T08:00:00Z"
order:
  tier: standard
  template: classic-card
assertions:
  - type: field
    field: status
    equals: approved
`)

	code, stdout, _ := f.run(t, "--format", "json", "test", failing, "--golden-dir", t.TempDir())
	assert.Equal(t, ExitFailure, code)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2, "result then error response")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 1, data["failed"])
	errs := data["scenarios"].([]any)[0].(map[string]any)["errors"].([]any)
	assert.Len(t, errs, 2, "assertion failure and missing golden file")

	code, _, stderr := f.run(t, "test", failing, "--update")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "--update requires --golden-dir")
}
