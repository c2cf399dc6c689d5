package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePatternFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validPatternYAML = `version: custom-v1
patterns:
  - id: po-number
    field: purchase_order
    regex: 'PO[:# ]+([A-Z0-9-]+)'
    priority: 10
    active: true
    confidence_weight: 0.8
`

func TestPatternsCheckValidFile(t *testing.T) {
	path := writePatternFile(t, validPatternYAML)

	out, err := runCommand(t, NewPatternsCommand(), "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 patterns ok")
	assert.Contains(t, out, "custom-v1")
}

func TestPatternsCheckRejectsMissingCaptureGroup(t *testing.T) {
	path := writePatternFile(t, `version: v1
patterns:
  - id: bad
    field: total_amount
    regex: 'PO\d+'
    active: true
    confidence_weight: 0.5
`)

	_, err := runCommand(t, NewPatternsCommand(), "check", path)
	assert.Error(t, err)
}

func TestPatternsCheckMissingFile(t *testing.T) {
	_, err := runCommand(t, NewPatternsCommand(), "check", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPatternsListText(t *testing.T) {
	out, err := runCommand(t, NewPatternsCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "invoice_number")
	assert.Contains(t, out, "total_amount")
	assert.Contains(t, out, "inv-num-labeled")
}

func TestPatternsListJSON(t *testing.T) {
	out, err := runCommand(t, NewPatternsCommand(), "list", "--json")
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.NotEmpty(t, entries)
}

func TestClassifyMissingFile(t *testing.T) {
	_, err := runCommand(t, NewClassifyCommand(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClassifyGarbageReportsUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	out, err := runCommand(t, NewClassifyCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "unreadable")
}

func TestProcessMissingFile(t *testing.T) {
	_, err := runCommand(t, NewProcessCommand(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestProcessUnreadablePDFReportsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	out, err := runCommand(t, NewProcessCommand(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed")
	assert.Contains(t, out, "failed:")
	assert.Contains(t, out, "hint:")
}
