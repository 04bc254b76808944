package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sadCUE = `
scenario: sad: {
	actors: grump: invoke: [{fail: {reason: "always grumpy"}}]
	invoke: target: "grump"
	expect: outcome: "success"
}
`

func TestTestCommand_AllPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ping.cue", pingCUE)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "PASS  ping")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_FailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ping.cue", pingCUE)
	writeFile(t, dir, "sad.cue", sadCUE)

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "PASS  ping")
	assert.Contains(t, out, "FAIL  sad")
	assert.Contains(t, out, "outcome: want success")
}

func TestTestCommand_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ping.cue", pingCUE)

	out, err := execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ping.cue", pingCUE)
	writeFile(t, dir, "sad.cue", sadCUE)

	// Filtering to ping skips the failing scenario entirely.
	out, err := execute(t, "test", dir, "--filter", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_BrokenScenarioIsCommandError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", `
scenario: broken: {
	actors: a: invoke: [{requests: [{target: "b", policy: "whenever"}]}]
	invoke: target: "a"
	expect: outcome: "success"
}
`)

	_, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", "/no/such/dir")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
