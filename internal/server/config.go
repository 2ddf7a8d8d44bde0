package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.dsn", "./data/kaliguru.db")

	// Upstream completion API. The platform kills any request at the
	// ceiling, so every retry decision is made against it.
	v.SetDefault("gateway.base_url", "https://api.groq.com")
	v.SetDefault("gateway.model", "llama-3.3-70b-versatile")
	v.SetDefault("gateway.api_key", "")
	v.SetDefault("gateway.ceiling", "30s")
	v.SetDefault("gateway.reserve", "4s")
	v.SetDefault("gateway.max_wait", "10s")
	v.SetDefault("gateway.safety_threshold", "5s")
	v.SetDefault("gateway.backoff_table", []string{"2s", "5s", "8s"})
	v.SetDefault("gateway.max_attempts", 4)
	v.SetDefault("gateway.relay_buffer", 32)

	// Module defaults
	v.SetDefault("modules.chat.max_tokens", 1024)
	v.SetDefault("modules.chat.history_limit", 100)
	v.SetDefault("modules.assess.max_tokens", 4096)
	v.SetDefault("modules.assess.question_timeout", "10s")
	v.SetDefault("modules.roadmap.max_tokens", 4096)
	v.SetDefault("modules.roadmap.min_length", 200)
	v.SetDefault("modules.roadmap.attempts", 2)
	v.SetDefault("modules.roadmap.retry_wait", "1s")

	// Auth defaults
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "720h")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("kaliguru")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/kaliguru")
	}

	// Environment variable support: KG_SERVER_PORT=9090, KG_GATEWAY_API_KEY=...
	v.SetEnvPrefix("KG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
