package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ai_registry/domain/entities"
	"ai_registry/infrastructure/config"
	"ai_registry/infrastructure/storage"
	syncgw "ai_registry/infrastructure/sync"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<!doctype html>
<html><head><title>Login</title></head>
<body>
  <form id="login">
    <input name="email" placeholder="Email address">
    <input type="password" name="password">
    <button type="submit" data-testid="login-submit">Sign in</button>
  </form>
  <a href="/forgot">Forgot password?</a>
  <button disabled>Unavailable</button>
</body></html>`

// run executes the root command with fresh flag values and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
	reset(rootCmd)
	for _, c := range rootCmd.Commands() {
		reset(c)
	}
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestShowTable(t *testing.T) {
	page := writeFile(t, "login.html", loginPage)

	out, err := run(t, "show", page)
	require.NoError(t, err)

	assert.Contains(t, out, "1 forms, 1 links, 4 interactive elements")
	assert.Contains(t, out, "ai-target-email")
	assert.Contains(t, out, "ai-target-login-submit")
	assert.Contains(t, out, "ai-target-forgot-password")
	assert.Contains(t, out, "form#login > input:nth-child(2)")
	assert.NotContains(t, out, "unavailable")
}

func TestShowJSON(t *testing.T) {
	page := writeFile(t, "login.html", loginPage)

	out, err := run(t, "show", "--json", page)
	require.NoError(t, err)

	var descriptors []entities.ElementDescriptor
	require.NoError(t, json.Unmarshal([]byte(out), &descriptors))
	require.Len(t, descriptors, 4)
	assert.Equal(t, entities.InteractionInput, descriptors[0].InteractionType)
	assert.Equal(t, "ai-target-login-submit", descriptors[2].TargetID)
	assert.Equal(t, entities.InteractionClick, descriptors[3].InteractionType)
	assert.Equal(t, "/forgot", descriptors[3].Href)
}

func TestShowMissingFile(t *testing.T) {
	_, err := run(t, "show", filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "registry.db")
	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	for _, v := range []string{"first", "second"} {
		require.NoError(t, db.Push(testContext(t), &entities.RegistrySnapshot{Version: v, CurrentPath: "/" + v}))
	}
	require.NoError(t, db.Close())

	cfg := writeFile(t, "config.yaml", "sync:\n  database: "+dbPath+"\n")

	out, err := run(t, "--config", cfg, "history", "--prune", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 1 snapshots.")
	assert.Contains(t, out, "/second")
	assert.NotContains(t, out, "/first")
}

func TestInvalidConfigFails(t *testing.T) {
	page := writeFile(t, "login.html", loginPage)

	_, err := run(t, "--sync", "ftp", "show", page)
	assert.ErrorContains(t, err, "unknown sync driver")
}

func TestNewGateway(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	v := viper.New()
	config.SetDefaults(v)
	cfg := config.FromViper(v)

	gw, closer, err := newGateway(cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, gw)
	assert.NoError(t, closer.Close())

	cfg.Sync.Driver = config.SyncHTTP
	cfg.Sync.URL = "http://127.0.0.1:1/registry"
	gw, _, err = newGateway(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &syncgw.HTTPGateway{}, gw)

	cfg.Sync.Driver = config.SyncFile
	cfg.Sync.File = filepath.Join(dir, "registry.json")
	gw, _, err = newGateway(cfg, logger)
	require.NoError(t, err)
	assert.NotNil(t, gw)

	cfg.Sync.Driver = config.SyncSQLite
	cfg.Sync.Database = filepath.Join(dir, "registry.db")
	gw, closer, err = newGateway(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &storage.DB{}, gw)
	assert.NoError(t, closer.Close())
}
