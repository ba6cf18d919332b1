package tool

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CASTANET"

// Config holds every provisioning knob, merged from defaults, an optional
// YAML file, CASTANET_* environment variables and CLI flags (highest wins).
type Config struct {
	Device    string        `mapstructure:"device"`
	Port      int           `mapstructure:"port"`
	SSID      string        `mapstructure:"ssid"`
	Password  string        `mapstructure:"password"`
	Auth      int           `mapstructure:"auth"`
	Cipher    int           `mapstructure:"cipher"`
	Name      string        `mapstructure:"name"`
	SkipScan  bool          `mapstructure:"skip_scan"`
	Insecure  bool          `mapstructure:"insecure"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Preflight bool          `mapstructure:"preflight"`
	NotifyURL string        `mapstructure:"notify_url"`
	Log       string        `mapstructure:"log"`
	LogDir    string        `mapstructure:"log_dir"`
	Scan      ScanConfig    `mapstructure:"scan"`
}

// ScanConfig selects how long to wait for the device's WiFi scan.
type ScanConfig struct {
	Mode        string        `mapstructure:"mode"` // fixed|poll
	Wait        time.Duration `mapstructure:"wait"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
	Attempts    int           `mapstructure:"attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// NewViper returns a viper instance with defaults and environment binding set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("device", "")
	v.SetDefault("port", DefaultSetupPort)
	v.SetDefault("ssid", "")
	v.SetDefault("password", "")
	v.SetDefault("auth", 7)
	v.SetDefault("cipher", 4)
	v.SetDefault("name", "")
	v.SetDefault("skip_scan", false)
	v.SetDefault("insecure", false)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("preflight", false)
	v.SetDefault("notify_url", "")
	v.SetDefault("log", "prod")
	v.SetDefault("log_dir", "")
	v.SetDefault("scan.mode", "fixed")
	v.SetDefault("scan.wait", 20*time.Second)
	v.SetDefault("scan.interval", 2*time.Second)
	v.SetDefault("scan.max_interval", 10*time.Second)
	v.SetDefault("scan.attempts", 15)
	v.SetDefault("scan.timeout", 60*time.Second)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the optional YAML file at path into v and decodes the result.
// A missing file is not an error.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	var cfg Config
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
