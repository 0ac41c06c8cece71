package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "intl-guidance", cfg.Program.ID)
	require.Equal(t, "pdf", cfg.Program.DocFormat)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Database.Provider)
	require.Equal(t, "international_documents", cfg.Database.Table)
	require.Equal(t, "INTERNATIONAL_DOCS", cfg.Uploader.Prefix)
	require.NotEmpty(t, cfg.Sources)
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
program:
  id: test-program
database:
  provider: postgres
  dsn: postgres://localhost/intake
sources:
  nigeria-nafdac:
    url: https://nafdac.gov.ng/resources/guidelines/
    country: Nigeria
    agency_id: NAFDAC
    starting_docket_id: 2000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test-program", cfg.Program.ID)
	require.Equal(t, "postgres", cfg.Database.Provider)
	require.Len(t, cfg.Sources, 1)
	require.Equal(t, int64(2000), cfg.Sources["nigeria-nafdac"].StartingDocketID)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Program.ID = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Provider = "postgres"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Uploader.Provider = "gcs"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Sources = map[string]SourceConfig{"bad": {Country: "X"}}
	require.Error(t, cfg.Validate())
}

func TestSourceList(t *testing.T) {
	t.Parallel()

	cfg := Config{Sources: map[string]SourceConfig{
		"b-source": {URL: "https://b.org", Country: "B"},
		"a-source": {URL: "https://a.org", Country: "A", StartingDocketID: 500},
	}}

	list := cfg.SourceList()
	require.Len(t, list, 2)
	require.Equal(t, "a-source", list[0].Name)
	require.Equal(t, int64(500), list[0].StartingDocketID)
	// Unset starting identifiers fall back to 1000.
	require.Equal(t, "b-source", list[1].Name)
	require.Equal(t, int64(1000), list[1].StartingDocketID)
}

func TestFromViperUsesDefaultSources(t *testing.T) {
	t.Parallel()

	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 7)
	require.Contains(t, cfg.Sources, "nigeria-nafdac")
}
