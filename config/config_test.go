package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validExportConfig() *AppConfig {
	return &AppConfig{
		EasyDB: &EasyDBConfig{
			Server:   "archive.example.org",
			Login:    "sync@example.org",
			Password: "secret",
		},
		Export: &ExportConfig{
			Module:       "person",
			BaseFolder:   "/data/xml",
			DownloadWhat: DownloadUpdate,
		},
		Assets: &AssetsConfig{},
		Log:    &LogConfig{Level: "info"},
	}
}

func TestValidateExportMode(t *testing.T) {
	assert.NoError(t, validExportConfig().Validate(ModeExport))

	cfg := validExportConfig()
	cfg.EasyDB.Server = ""
	assert.Error(t, cfg.Validate(ModeExport))

	cfg = validExportConfig()
	cfg.EasyDB.Password = ""
	assert.Error(t, cfg.Validate(ModeExport))

	cfg = validExportConfig()
	cfg.Export.Module = ""
	assert.Error(t, cfg.Validate(ModeExport))

	cfg = validExportConfig()
	cfg.Export.BaseFolder = ""
	assert.Error(t, cfg.Validate(ModeExport))
}

func TestValidateDownloadScope(t *testing.T) {
	for _, scope := range []string{DownloadAll, DownloadUpdate, DownloadSample} {
		cfg := validExportConfig()
		cfg.Export.DownloadWhat = scope
		assert.NoError(t, cfg.Validate(ModeExport), scope)
	}

	cfg := validExportConfig()
	cfg.Export.DownloadWhat = "everything"
	assert.Error(t, cfg.Validate(ModeExport))
}

func TestValidateAssetsMode(t *testing.T) {
	cfg := validExportConfig()
	cfg.Assets.InputFile = "/data/extraction.csv"
	assert.NoError(t, cfg.Validate(ModeAssets))

	cfg.Assets.InputFile = ""
	assert.Error(t, cfg.Validate(ModeAssets))
}

func TestValidateUnknownMode(t *testing.T) {
	assert.Error(t, validExportConfig().Validate("serve"))
}
