package config

import "time"

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Presence PresenceConfig `mapstructure:"presence"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Tracer   TracerConfig   `mapstructure:"tracer"`
}

type ServiceConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Addr string `mapstructure:"addr"`
}

// RedisConfig with an empty URL runs the server on the in-process event bus
// without presence tracking.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	PingTimeout  time.Duration `mapstructure:"pingTimeout"`
}

// PostgresConfig with an empty DSN disables notification persistence.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"`
	PingTimeout     time.Duration `mapstructure:"pingTimeout"`
}

type AuthConfig struct {
	Secret            string        `mapstructure:"secret"`
	TokenTTL          time.Duration `mapstructure:"tokenTTL"`
	RequireAdminToken bool          `mapstructure:"requireAdminToken"`
	IngestKey         string        `mapstructure:"ingestKey"`
}

type PresenceConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// ChannelConfig is used by the watch command to reach a server.
type ChannelConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	DialTimeout       time.Duration `mapstructure:"dialTimeout"`
	ReconnectDelay    time.Duration `mapstructure:"reconnectDelay"`
	MaxReconnectDelay time.Duration `mapstructure:"maxReconnectDelay"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracerConfig with an empty address keeps the no-op tracer provider.
type TracerConfig struct {
	Address string `mapstructure:"address"`
}
