package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Burn     BurnConfig     `yaml:"burn" mapstructure:"burn"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Mirror   MirrorConfig   `yaml:"mirror" mapstructure:"mirror"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// CatalogConfig holds the primary data catalog API settings.
type CatalogConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// GridConfig defines the raster grid every per-dataset image is burned
// into. Coordinates are in the target spatial reference's linear units
// (Web Mercator meters by default).
type GridConfig struct {
	MinX       float64 `yaml:"min_x" mapstructure:"min_x"`
	MinY       float64 `yaml:"min_y" mapstructure:"min_y"`
	MaxX       float64 `yaml:"max_x" mapstructure:"max_x"`
	MaxY       float64 `yaml:"max_y" mapstructure:"max_y"`
	Resolution float64 `yaml:"resolution" mapstructure:"resolution"`
	TargetEPSG int     `yaml:"target_epsg" mapstructure:"target_epsg"`
}

// BurnConfig tunes per-feature burn intensities.
type BurnConfig struct {
	// MaxAreaRatio is the fraction of the bounding-box area above which a
	// polygon contributes nothing.
	MaxAreaRatio float64 `yaml:"max_area_ratio" mapstructure:"max_area_ratio"`
	// DecayRate controls how fast large polygons lose weight.
	DecayRate float64 `yaml:"decay_rate" mapstructure:"decay_rate"`
	// PointValue and LineValue are the constant intensities for
	// non-polygon geometry.
	PointValue int `yaml:"point_value" mapstructure:"point_value"`
	LineValue  int `yaml:"line_value" mapstructure:"line_value"`
}

// PipelineConfig configures the heat map run.
type PipelineConfig struct {
	Workers        int    `yaml:"workers" mapstructure:"workers"`
	DatasetsDir    string `yaml:"datasets_dir" mapstructure:"datasets_dir"`
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	ForceRasterize bool   `yaml:"force_rasterize" mapstructure:"force_rasterize"`
}

// MirrorConfig configures the regional catalog mirror sync.
type MirrorConfig struct {
	SourceURL   string `yaml:"source_url" mapstructure:"source_url"`
	TitlePrefix string `yaml:"title_prefix" mapstructure:"title_prefix"`
	NamePrefix  string `yaml:"name_prefix" mapstructure:"name_prefix"`
	Group       string `yaml:"group" mapstructure:"group"`
	License     string `yaml:"license" mapstructure:"license"`
}

// StoreConfig configures the local run log database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status/map server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DATAMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.base_url", "https://data.opencolorado.org/api/2")
	// Colorado extent in Web Mercator meters.
	v.SetDefault("grid.min_x", -12140532.1637)
	v.SetDefault("grid.max_x", -11359138.5791)
	v.SetDefault("grid.min_y", 4438050.84302)
	v.SetDefault("grid.max_y", 5012849.66619)
	v.SetDefault("grid.resolution", 80.0)
	v.SetDefault("grid.target_epsg", 3857)
	v.SetDefault("burn.max_area_ratio", 0.2)
	v.SetDefault("burn.decay_rate", 10.0)
	v.SetDefault("burn.point_value", 255)
	v.SetDefault("burn.line_value", 255)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.datasets_dir", "datasets")
	v.SetDefault("pipeline.output_path", "map.png")
	v.SetDefault("pipeline.force_rasterize", false)
	v.SetDefault("mirror.title_prefix", "DRCOG: ")
	v.SetDefault("mirror.name_prefix", "drcog-")
	v.SetDefault("mirror.group", "drcog")
	v.SetDefault("mirror.license", "cc-by")
	v.SetDefault("store.path", "datamap.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
