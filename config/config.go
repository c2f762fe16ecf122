package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Modes the binary runs in, selected by the first positional argument.
const (
	ModeExport = "export"
	ModeAssets = "assets"
)

// Download scopes for the export mode.
const (
	DownloadAll    = "all"
	DownloadUpdate = "update"
	DownloadSample = "sample"
)

type AppConfig struct {
	File   string        `json:"-"`
	EasyDB *EasyDBConfig `json:"easydb,omitempty"`
	Export *ExportConfig `json:"export,omitempty"`
	Assets *AssetsConfig `json:"assets,omitempty"`
	Log    *LogConfig    `json:"log,omitempty"`
}

type EasyDBConfig struct {
	Server   string `json:"server"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type ExportConfig struct {
	Module         string        `json:"module"`
	BaseFolder     string        `json:"baseFolder"`
	FilenamePrefix string        `json:"filenamePrefix"`
	DownloadWhat   string        `json:"downloadWhat"`
	PollInterval   time.Duration `json:"pollInterval"`
	PageSize       int           `json:"pageSize"`
	ChunkSize      int           `json:"chunkSize"`
}

type AssetsConfig struct {
	InputFile    string        `json:"inputFile"`
	DataFolder   string        `json:"dataFolder"`
	SourceFolder string        `json:"sourceFolder"`
	AssetsFolder string        `json:"assetsFolder"`
	OutputPrefix string        `json:"outputPrefix"`
	Offset       int           `json:"offset"`
	Limit        int           `json:"limit"`
	Workers      int           `json:"workers"`
	MaxRetries   int           `json:"maxRetries"`
	RetrySleep   time.Duration `json:"retrySleep"`
}

type LogConfig struct {
	Level string `json:"level"`
}

func LoadConfig() (*AppConfig, error) {
	bindFlagsAndEnv()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	return buildAppConfig(configFile), nil
}

func bindFlagsAndEnv() {
	pflag.String("config_file", "", "Configuration file in JSON format")

	// easydb
	pflag.String("server", "", "easydb server URL")
	pflag.String("login", "", "easydb login email")
	pflag.String("password", "", "easydb account password")

	// export
	pflag.String("module", "", "Object type to export (person, group, ...)")
	pflag.String("base_folder", "", "Base folder for XML output and the checkpoint file")
	pflag.String("filename_prefix", "item-", "Prefix for generated XML filenames")
	pflag.String("download_what", DownloadUpdate, "Download scope: all, update or sample")
	pflag.Duration("poll_interval", 5*time.Second, "Sleep between export status polls")
	pflag.Int("page_size", 1000, "Object search page size")
	pflag.Int("chunk_size", 30000, "Max objects per export job")

	// assets
	pflag.String("input_file", "", "Extraction CSV with asset URLs")
	pflag.String("data_folder", "/data", "Folder holding the extraction CSVs and manifests")
	pflag.String("source_folder", "/data/source", "Folder holding the asset checkpoint file")
	pflag.String("assets_folder", "/assets", "Folder binary assets are written to")
	pflag.String("output_prefix", "cms-", "Prefix for generated asset filenames")
	pflag.Int("offset", 0, "Offset into the extraction CSV")
	pflag.Int("limit", 0, "Max rows to process, 0 for all")
	pflag.Int("workers", 1, "Concurrent asset downloads")
	pflag.Int("max_retries", 3, "Attempts per asset fetch")
	pflag.Duration("retry_sleep", time.Second, "Sleep between asset fetch attempts")

	pflag.String("log_level", "info", "Log level: debug, info, warn, error")

	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Credentials come from the environment in scheduled runs.
	_ = viper.BindEnv("server", "EASYDB_SERVER")
	_ = viper.BindEnv("login", "EASYDB_LOGIN")
	_ = viper.BindEnv("password", "EASYDB_PASSWORD")
}

func getConfigFilePath() string {
	file := viper.GetString("config_file")
	if file == "" {
		file = os.Getenv("EASYDB_EXPORTER_CONFIG_FILE")
	}
	return file
}

func loadFromFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("could not load config file: %w", err)
	}
	return nil
}

func buildAppConfig(file string) *AppConfig {
	return &AppConfig{
		File: file,
		EasyDB: &EasyDBConfig{
			Server:   viper.GetString("server"),
			Login:    viper.GetString("login"),
			Password: viper.GetString("password"),
		},
		Export: &ExportConfig{
			Module:         viper.GetString("module"),
			BaseFolder:     viper.GetString("base_folder"),
			FilenamePrefix: viper.GetString("filename_prefix"),
			DownloadWhat:   viper.GetString("download_what"),
			PollInterval:   viper.GetDuration("poll_interval"),
			PageSize:       viper.GetInt("page_size"),
			ChunkSize:      viper.GetInt("chunk_size"),
		},
		Assets: &AssetsConfig{
			InputFile:    viper.GetString("input_file"),
			DataFolder:   viper.GetString("data_folder"),
			SourceFolder: viper.GetString("source_folder"),
			AssetsFolder: viper.GetString("assets_folder"),
			OutputPrefix: viper.GetString("output_prefix"),
			Offset:       viper.GetInt("offset"),
			Limit:        viper.GetInt("limit"),
			Workers:      viper.GetInt("workers"),
			MaxRetries:   viper.GetInt("max_retries"),
			RetrySleep:   viper.GetDuration("retry_sleep"),
		},
		Log: &LogConfig{Level: viper.GetString("log_level")},
	}
}

// Validate checks the fields the selected mode actually needs.
func (cfg *AppConfig) Validate(mode string) error {
	switch mode {
	case ModeExport:
		if cfg.EasyDB.Server == "" {
			return fmt.Errorf("easydb server is required")
		}
		if cfg.EasyDB.Login == "" || cfg.EasyDB.Password == "" {
			return fmt.Errorf("easydb login and password are required")
		}
		if cfg.Export.Module == "" {
			return fmt.Errorf("module is required")
		}
		if cfg.Export.BaseFolder == "" {
			return fmt.Errorf("base folder is required")
		}
		switch cfg.Export.DownloadWhat {
		case DownloadAll, DownloadUpdate, DownloadSample:
		default:
			return fmt.Errorf("download_what must be all, update or sample, got %q", cfg.Export.DownloadWhat)
		}
	case ModeAssets:
		if cfg.Assets.InputFile == "" {
			return fmt.Errorf("input file is required")
		}
	default:
		return fmt.Errorf("unknown mode %q, expected %s or %s", mode, ModeExport, ModeAssets)
	}
	return nil
}
