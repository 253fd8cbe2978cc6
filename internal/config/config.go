package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// LISTINGS_EDA_SERVER_ADDR.
const EnvPrefix = "LISTINGS_EDA"

// Global configuration structure.
type Global struct {
	// Dataset discovery and parsing
	DataPaths []string `mapstructure:"data_paths" yaml:"data_paths"`
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter" validate:"omitempty,max=3"`
	Sheet     string   `mapstructure:"sheet" yaml:"sheet"`
	FillValue string   `mapstructure:"fill_value" yaml:"fill_value" validate:"required"`

	// Dashboard computations
	CapK            float64 `mapstructure:"cap_k" yaml:"cap_k" validate:"gt=0"`
	CapMethod       string  `mapstructure:"cap_method" yaml:"cap_method" validate:"oneof=lower linear"`
	TopN            int     `mapstructure:"top_n" yaml:"top_n" validate:"gte=1"`
	HistogramBins   int     `mapstructure:"histogram_bins" yaml:"histogram_bins" validate:"gte=1,lte=1000"`
	GeoSampleMax    int     `mapstructure:"geo_sample_max" yaml:"geo_sample_max" validate:"gte=1"`
	GeoSampleSeed   uint64  `mapstructure:"geo_sample_seed" yaml:"geo_sample_seed"`
	PriceSliderCap  float64 `mapstructure:"price_slider_cap" yaml:"price_slider_cap" validate:"gt=0"`
	DefaultPriceMax float64 `mapstructure:"default_price_max" yaml:"default_price_max" validate:"gt=0"`

	// Output
	OutputFormat string `mapstructure:"output_format" yaml:"output_format" validate:"oneof=markdown json"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`

	// HTTP service
	ServerAddr     string  `mapstructure:"server_addr" yaml:"server_addr" validate:"required"`
	UploadMaxMB    int     `mapstructure:"upload_max_mb" yaml:"upload_max_mb" validate:"gte=1"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=1"`

	// Export
	PostgresDSN   string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table" yaml:"postgres_table" validate:"required,max=63"`
}

// Dir returns ~/.listings-eda.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".listings-eda"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.listings-eda/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := Validate(c); err != nil {
		return err
	}
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a .env file in the working directory) >
// config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; variables already set in the process win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_paths", []string{"data/airbnb_clean.csv", "data/AB_NYC_2019.csv"})
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet", "")
	v.SetDefault("fill_value", "Unknown")
	v.SetDefault("cap_k", 1.5)
	v.SetDefault("cap_method", "lower")
	v.SetDefault("top_n", 10)
	v.SetDefault("histogram_bins", 50)
	v.SetDefault("geo_sample_max", 4000)
	v.SetDefault("geo_sample_seed", 42)
	v.SetDefault("price_slider_cap", 5000.0)
	v.SetDefault("default_price_max", 500.0)
	v.SetDefault("output_format", "markdown")
	v.SetDefault("output_dir", "dataset_summaries")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("server_addr", ":8501")
	v.SetDefault("upload_max_mb", 64)
	v.SetDefault("rate_limit_rps", 2.0)
	v.SetDefault("rate_limit_burst", 4)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("postgres_table", "listing_views")
}

var validate = validator.New()

// Validate checks field constraints and reports the first offending key.
func Validate(c *Global) error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
