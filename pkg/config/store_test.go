package config

import (
	"os"
	"path/filepath"
	"testing"

	"example.com/DeployTools/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	store, err := NewDefaultStore(configPath, filepath.Join(dir, "config.key"))
	require.NoError(t, err)
	return store, configPath
}

func TestLoadMissingFileReturnsEmptyConfig(t *testing.T) {
	store, _ := newTestStore(t)
	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Nodes.Keys())
	assert.Empty(t, cfg.Deployments.Keys())
}

func TestSaveEncryptsSensitiveFields(t *testing.T) {
	store, configPath := newTestStore(t)

	cfg := NewConfiguration()
	cfg.Identities.Set("web01", models.Identity{
		User:     "deploy",
		Password: "plaintext-login",
		AuthType: "password",
	})
	cfg.Hosts.Set("web01", models.Host{Address: "10.0.0.2", Port: 22})
	cfg.Nodes.Set("web01", models.Node{
		HostRef:     "web01",
		IdentityRef: "web01",
		SudoPwd:     "plaintext-sudo",
	})
	require.NoError(t, store.Save(cfg))

	// 落盘内容不包含任何明文口令
	raw, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-login")
	assert.NotContains(t, string(raw), "plaintext-sudo")
	assert.Contains(t, string(raw), "ENC:")

	// 内存中的配置不被 Save 污染
	id, _ := cfg.Identities.Get("web01")
	assert.Equal(t, "plaintext-login", id.Password)

	loaded, err := store.Load()
	require.NoError(t, err)
	id, ok := loaded.Identities.Get("web01")
	require.True(t, ok)
	assert.Equal(t, "plaintext-login", id.Password)
	node, ok := loaded.Nodes.Get("web01")
	require.True(t, ok)
	assert.Equal(t, "plaintext-sudo", node.SudoPwd)
}

func TestLoadAcceptsHandEditedPlaintext(t *testing.T) {
	store, configPath := newTestStore(t)
	raw := `
identities:
  web01:
    user: deploy
    password: hand-edited
    auth_type: password
`
	require.NoError(t, os.WriteFile(configPath, []byte(raw), 0o600))

	cfg, err := store.Load()
	require.NoError(t, err)
	id, ok := cfg.Identities.Get("web01")
	require.True(t, ok)
	// 手工编辑的明文配置照常可用,下次 Save 时才加密
	assert.Equal(t, "hand-edited", id.Password)
}

func TestSaveRoundTripsDeployments(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := NewConfiguration()
	cfg.Deployments.Set("app", DeploymentSpec{
		Node:       "web01",
		RemoteRoot: "/opt/app",
		Service:    "app",
		StateDirs:  []string{"data", "logs"},
		Health:     HealthSpec{Port: 8080},
	})
	require.NoError(t, store.Save(cfg))

	loaded, err := store.Load()
	require.NoError(t, err)
	spec, ok := loaded.Deployments.Get("app")
	require.True(t, ok)
	assert.Equal(t, "/opt/app", spec.RemoteRoot)
	assert.Equal(t, []string{"data", "logs"}, spec.StateDirs)
}
