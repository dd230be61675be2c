package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config 服务完整配置。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Async     AsyncConfig     `mapstructure:"async"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
}

// Default 汇总各模块默认配置。
func Default() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Logger:    DefaultLoggerConfig(),
		Async:     DefaultAsyncConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		JWT:       DefaultJWTConfig(),
		Registry:  DefaultRegistryConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Cache:     DefaultCacheConfig(),
		Snowflake: DefaultSnowflakeConfig(),
	}
}

// Load 读取配置。
// 优先级：环境变量(STATUS_SERVER_ADDR 形式) > YAML 文件 > 默认值。
// path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STATUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 把默认配置逐项写入 viper，保证 AutomaticEnv 能识别所有 key。
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.ws_pong_wait", d.Server.WSPongWait)
	v.SetDefault("server.ws_ping_interval", d.Server.WSPingInterval)
	v.SetDefault("server.ws_max_message_size", d.Server.WSMaxMessageSize)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.encoding", d.Logger.Encoding)
	v.SetDefault("logger.enable_color", d.Logger.EnableColor)
	v.SetDefault("logger.development", d.Logger.Development)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)
	v.SetDefault("logger.error_output_paths", d.Logger.ErrorOutputPaths)

	v.SetDefault("async.pool_size", d.Async.PoolSize)
	v.SetDefault("async.max_blocking_tasks", d.Async.MaxBlockingTasks)
	v.SetDefault("async.expiry_duration", d.Async.ExpiryDuration)
	v.SetDefault("async.nonblocking", d.Async.Nonblocking)
	v.SetDefault("async.release_timeout", d.Async.ReleaseTimeout)
	v.SetDefault("async.relay_pool_size", d.Async.RelayPoolSize)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.replicas", d.Database.Replicas)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.log_level", d.Database.LogLevel)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.dial_timeout", d.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", d.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", d.Redis.WriteTimeout)

	v.SetDefault("jwt.secret", d.JWT.Secret)
	v.SetDefault("jwt.ttl", d.JWT.TTL)
	v.SetDefault("jwt.issuer", d.JWT.Issuer)

	v.SetDefault("registry.mode", d.Registry.Mode)
	v.SetDefault("registry.entry_ttl", d.Registry.EntryTTL)
	v.SetDefault("registry.breaker.max_requests", d.Registry.Breaker.MaxRequests)
	v.SetDefault("registry.breaker.interval", d.Registry.Breaker.Interval)
	v.SetDefault("registry.breaker.timeout", d.Registry.Breaker.Timeout)
	v.SetDefault("registry.breaker.min_requests", d.Registry.Breaker.MinRequests)
	v.SetDefault("registry.breaker.failure_ratio", d.Registry.Breaker.FailureRatio)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.rate", d.RateLimit.Rate)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rate_limit.local_size", d.RateLimit.LocalSize)

	v.SetDefault("cache.profile_size", d.Cache.ProfileSize)
	v.SetDefault("cache.profile_ttl", d.Cache.ProfileTTL)

	v.SetDefault("snowflake.node", d.Snowflake.Node)
}
