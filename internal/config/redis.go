package config

// Redis backs the distributed rate limiter and the catalog response
// cache.  It is optional: when the server cannot be reached the client
// constructor returns nil and both features degrade to pass-through.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/kelseyhightower/envconfig"
    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for Redis.  Addr is built from
// REDIS_HOST and REDIS_PORT when both are set, otherwise REDIS_ADDR is used.
type RedisConfig struct {
    Host     string `envconfig:"REDIS_HOST"`
    Port     string `envconfig:"REDIS_PORT"`
    Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
    Password string `envconfig:"REDIS_PASSWORD"`
    DB       int    `envconfig:"REDIS_DB" default:"0"`
    TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

// Address returns the host:port the client should dial.
func (c RedisConfig) Address() string {
    if c.Host != "" && c.Port != "" {
        return c.Host + ":" + c.Port
    }
    return c.Addr
}

// NewRedisClient instantiates a Redis client from the environment.  The
// returned client is nil if the server does not answer a ping within two
// seconds.
func NewRedisClient() *redis.Client {
    var rc RedisConfig
    if err := envconfig.Process("", &rc); err != nil {
        return nil
    }
    var tlsConf *tls.Config
    if rc.TLS {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      rc.Address(),
        Password:  rc.Password,
        DB:        rc.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
