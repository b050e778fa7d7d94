package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Load reads defaults, an optional config file, and ORDERCAST_* environment
// variables, in increasing order of precedence. An empty file name skips
// the file lookup.
func Load(fileName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ORDERCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fileName != "" {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "ordercast")
	v.SetDefault("service.env", "development")
	v.SetDefault("service.addr", ":8080")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.pingTimeout", "2s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxOpenConns", 25)
	v.SetDefault("postgres.maxIdleConns", 5)
	v.SetDefault("postgres.connMaxLifetime", "15m")
	v.SetDefault("postgres.connMaxIdleTime", "5m")
	v.SetDefault("postgres.pingTimeout", "5s")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.tokenTTL", "24h")
	v.SetDefault("auth.requireAdminToken", false)
	v.SetDefault("auth.ingestKey", "")

	v.SetDefault("presence.ttl", "45s")
	v.SetDefault("presence.heartbeat", "30s")

	v.SetDefault("channel.url", "ws://localhost:8080/ws")
	v.SetDefault("channel.token", "")
	v.SetDefault("channel.dialTimeout", "10s")
	v.SetDefault("channel.reconnectDelay", "500ms")
	v.SetDefault("channel.maxReconnectDelay", "30s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("tracer.address", "")
}
