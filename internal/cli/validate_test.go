package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const brokenCatalog = `
package layouts

resource: coal: {}

group_type: bin: {}

layout: crate: groups: [
	{type: "drawer", capacity: 8, filter: allow: ["sand"]},
]
`

func TestValidateValidLayouts(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), layoutsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All layouts valid (6 resource(s), 3 group type(s), 2 layout(s))")
}

func TestValidateValidLayoutsJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), layoutsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 6, resp.Data.Resources)
	assert.Equal(t, 3, resp.Data.GroupTypes)
	assert.Equal(t, []string{"furnace", "chest"}, resp.Data.Layouts)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "layouts directory not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNoFiles)
}

func TestValidateReportsEveryError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", brokenCatalog)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, `E202: layout.crate.groups[0].type: unknown group type "drawer"`)
	assert.Contains(t, out, `E203: layout.crate.groups[0].filter.allow: unknown resource "sand"`)
}

func TestValidateReportsEveryErrorJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", brokenCatalog)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, "E202", resp.Data.Errors[0].Code)
	assert.Equal(t, "E203", resp.Data.Errors[1].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E202", resp.Error.Code)
}

func TestValidateStructuralError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `
package layouts

group_type: bin: {}

layout: crate: groups: [{type: "bin"}]
`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E205: layout.crate.groups[0].capacity: capacity is required")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"cue", ErrCodeBuildFailed},
		{"group_type.bin.colour", ErrCodeInvalidColour},
		{"resource.lava.remainder", "E201"},
		{"layout.crate.groups[0].type", "E202"},
		{"group_type.bin.policy", "E204"},
		{"layout.crate.groups[0].slots", "E205"},
		{"layout.crate.groups[0].capacity", "E205"},
		{"layout.crate.groups", "E208"},
		{"layout.crate.groups[0].fixed", ErrCodeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root.cue", "package layouts")
	writeFile(t, dir, "nested/more.cue", "package layouts")
	writeFile(t, dir, "README.md", "not cue")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
