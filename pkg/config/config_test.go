package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := GetDefaultConfig()

	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, "stdout", cfg.Logging.Output)
	require.NotZero(t, cfg.Server.ShutdownTimeout)
	require.Equal(t, "filesystem", cfg.Content.Type)
	require.Equal(t, "/var/lib/stashfs/content", cfg.Content.Filesystem["path"])
	require.Equal(t, "badger", cfg.Metadata.Type)
	require.Equal(t, "/var/lib/stashfs/metadata", cfg.Metadata.Badger["db_path"])
	require.False(t, cfg.Index.Enabled)

	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: debug
content:
  type: memory
metadata:
  type: badger
  badger:
    in_memory: true
    db_path: ""
index:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, "memory", cfg.Content.Type)
	require.Equal(t, "badger", cfg.Metadata.Type)
	require.Equal(t, true, cfg.Metadata.Badger["in_memory"])
	require.True(t, cfg.Index.Enabled)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "filesystem", cfg.Content.Type)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("STASHFS_LOGGING_LEVEL", "error")
	t.Setenv("STASHFS_METADATA_TYPE", "memory")

	// Environment variables override values present in the config file.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: info
metadata:
  type: badger
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ERROR", cfg.Logging.Level)
	require.Equal(t, "memory", cfg.Metadata.Type)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "LOUD"
	require.Error(t, Validate(cfg))

	cfg = GetDefaultConfig()
	cfg.Content.Type = "ftp"
	require.Error(t, Validate(cfg))

	cfg = GetDefaultConfig()
	cfg.Content.Type = "s3"
	cfg.Content.S3 = map[string]any{"bucket": "blobs"}
	require.Error(t, Validate(cfg)) // region missing

	cfg = GetDefaultConfig()
	cfg.Metadata.Badger["db_path"] = ""
	require.Error(t, Validate(cfg))

	cfg = GetDefaultConfig()
	cfg.Metadata.Badger["db_path"] = ""
	cfg.Metadata.Badger["in_memory"] = true
	require.NoError(t, Validate(cfg))
}

func TestCreateMetadataStore(t *testing.T) {
	ctx := context.Background()

	store, err := CreateMetadataStore(ctx, &MetadataConfig{Type: "memory"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = CreateMetadataStore(ctx, &MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{"db_path": t.TempDir()},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = CreateMetadataStore(ctx, &MetadataConfig{Type: "etcd"})
	require.Error(t, err)

	_, err = CreateMetadataStore(ctx, &MetadataConfig{Type: "badger"})
	require.Error(t, err) // db_path missing
}

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	store, err := CreateContentStore(ctx, &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir(), "namer_seed": int64(7)},
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	store, err = CreateContentStore(ctx, &ContentConfig{Type: "memory"})
	require.NoError(t, err)
	require.NotNil(t, store)

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "filesystem"})
	require.Error(t, err) // path missing

	_, err = CreateContentStore(ctx, &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	})
	require.Error(t, err) // bucket missing
}
