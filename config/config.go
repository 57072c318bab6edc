package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// AuthConfig holds every knob of the session/login subsystem.
type AuthConfig struct {
	SessionLifetime  time.Duration `mapstructure:"sessionLifetime"`
	MaxLoginAttempts int           `mapstructure:"maxLoginAttempts"`
	LockoutWindow    time.Duration `mapstructure:"lockoutWindow"`
	RememberLifetime time.Duration `mapstructure:"rememberLifetime"`
	BcryptCost       int           `mapstructure:"bcryptCost"`
	SecureCookies    bool          `mapstructure:"secureCookies"`
}

type MailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Domain  string `mapstructure:"domain"`
	APIKey  string `mapstructure:"apiKey"`
	Sender  string `mapstructure:"sender"`
}

type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	TokenPurgeSpec    string `mapstructure:"tokenPurgeSpec"`
	LowStockSweepSpec string `mapstructure:"lowStockSweepSpec"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Pprof struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"pprof"`
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Mail      MailConfig      `mapstructure:"mail"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")
	v.AddConfigPath("/usr/local/bin/wrenchwise")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	applyAuthDefaults(&config.Auth)
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

func applyAuthDefaults(a *AuthConfig) {
	if a.SessionLifetime <= 0 {
		a.SessionLifetime = 30 * time.Minute
	}
	if a.MaxLoginAttempts <= 0 {
		a.MaxLoginAttempts = 5
	}
	if a.LockoutWindow <= 0 {
		a.LockoutWindow = 15 * time.Minute
	}
	if a.RememberLifetime <= 0 {
		a.RememberLifetime = 30 * 24 * time.Hour
	}
	if a.BcryptCost <= 0 {
		a.BcryptCost = 12
	}
}
