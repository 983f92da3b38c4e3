package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/freyjadoc/pkg/config"
)

type cli struct {
	configPath string
	dataDir    string
}

func newCLI(t *testing.T) *cli {
	tmpDir := t.TempDir()
	return &cli{
		configPath: filepath.Join(tmpDir, "config.yaml"),
		dataDir:    filepath.Join(tmpDir, "data"),
	}
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--config", c.configPath, "--data-dir", c.dataDir, "--log-level", "warn"))
	err := root.Execute()
	return out.String(), err
}

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &doc), s)
	return doc
}

func TestInitCommand(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "API key:")
	assert.DirExists(t, c.dataDir)

	cfg, err := config.LoadConfig(c.configPath)
	require.NoError(t, err)
	assert.Equal(t, c.dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)

	out, err = c.run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	_, err = c.run(t, "", "init", "--force")
	require.NoError(t, err)
	again, err := config.LoadConfig(c.configPath)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Security.APIKey, again.Security.APIKey)
}

func TestRecordCommands(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "", "put", "character", `{"name": "Tyrion", "aka": ["The Imp", "Halfman"], "stats": {"wit": 20}}`)
	require.NoError(t, err)
	created := decode(t, out)
	id, ok := created["id"].(string)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Halfman", "The Imp"}, created["aka"])

	out, err = c.run(t, `{"id": "`+id+`", "summary": "Hand of the Queen"}`, "put", "character", "-")
	require.NoError(t, err)
	updated := decode(t, out)
	assert.Equal(t, "Tyrion", updated["name"])
	assert.Equal(t, "Hand of the Queen", updated["summary"])

	out, err = c.run(t, "", "get", "character", id)
	require.NoError(t, err)
	assert.Equal(t, updated, decode(t, out))

	out, err = c.run(t, "", "get", "character", id, "--output", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "name:")
	assert.Contains(t, out, "Tyrion")

	out, err = c.run(t, "", "list", "character")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, id, decode(t, lines[0])["id"])

	out, err = c.run(t, "", "list", "character", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Hand of the Queen")

	out, err = c.run(t, "", "list")
	require.NoError(t, err)
	assert.Equal(t, "character\nplace\ngroup\n", out)

	out, err = c.run(t, "", "delete", "character", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted lore.Character")

	_, err = c.run(t, "", "get", "character", id)
	assert.Error(t, err)
}

func TestRecordCommands_Errors(t *testing.T) {
	c := newCLI(t)

	testCases := []struct {
		name string
		args []string
		msg  string
	}{
		{name: "unknown model", args: []string{"get", "dragon", "x"}, msg: "dragon"},
		{name: "invalid json", args: []string{"put", "place", "{"}, msg: "JSON object"},
		{name: "invalid record", args: []string{"put", "place", `{"summary": "nameless"}`}, msg: "lore.Place.name"},
		{name: "missing record", args: []string{"delete", "place", "2Bf2vJpC3R8qYiVwTIny0rzEWMK"}, msg: "not found"},
		{name: "bad output", args: []string{"list", "place", "-o", "xml"}, msg: "unknown output format"},
		{name: "wrong arg count", args: []string{"get", "place"}, msg: "accepts 2 arg(s)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.run(t, "", tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	c := newCLI(t)
	cfg := config.DefaultConfig()
	cfg.DataDir = "/from/config"
	cfg.Schema.Namespace = "saga"
	require.NoError(t, config.SaveConfig(cfg, c.configPath))

	root := NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", c.configPath, "--data-dir", c.dataDir}))

	loaded, err := loadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, c.dataDir, loaded.DataDir)
	assert.Equal(t, "saga", loaded.Schema.Namespace)

	root = NewRootCmd()
	require.NoError(t, root.ParseFlags([]string{"--config", c.configPath, "--log-level", "chatty"}))
	_, err = loadConfig(root)
	assert.Error(t, err)
}
