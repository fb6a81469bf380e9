// api/config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tenant resolution modes.
const (
	TenantModeSubdomain = "subdomain"
	TenantModeHeader    = "header"
	TenantModeJWT       = "jwt"
	TenantModePath      = "path"
)

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverNeo4j    = "neo4j"
)

// Audit sinks.
const (
	AuditSinkSQL           = "sql"
	AuditSinkElasticsearch = "elasticsearch"
)

// DefaultAuditDenylist holds the payload keys scrubbed from audit records.
var DefaultAuditDenylist = []string{
	"password",
	"refreshToken",
	"accessToken",
	"secret",
	"ssn",
	"socialSecurityNumber",
}

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Tenant        TenantConfiguration
	Policy        PolicyConfiguration
	Audit         AuditConfiguration
	Store         StoreConfiguration
	Neo4j         Neo4jConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Auth          AuthConfiguration
	RateLimit     RateLimitConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port      string
	APIPrefix string `mapstructure:"apiPrefix"`
}

type TenantConfiguration struct {
	Mode string
}

type PolicyConfiguration struct {
	CacheTTL      time.Duration `mapstructure:"cacheTTL"`
	BootstrapFile string        `mapstructure:"bootstrapFile"`
}

type AuditConfiguration struct {
	Sink     string
	Denylist []string
}

type StoreConfiguration struct {
	Driver       string
	DSN          string
	QueryTimeout time.Duration `mapstructure:"queryTimeout"`
}

type Neo4jConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	DialTimeout    time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	TenantCacheTTL time.Duration `mapstructure:"tenantCacheTTL"`
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL   string
	Index string
}

type AuthConfiguration struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
}

var config *Configuration

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.apiPrefix", "/api/v1")
	v.SetDefault("tenant.mode", TenantModeJWT)
	v.SetDefault("policy.cacheTTL", "60s")
	v.SetDefault("policy.bootstrapFile", "config/policies.yaml")
	v.SetDefault("audit.sink", AuditSinkSQL)
	v.SetDefault("audit.denylist", DefaultAuditDenylist)
	v.SetDefault("store.driver", StoreDriverSQLite)
	v.SetDefault("store.dsn", "file:gatekeeper.db?_pragma=foreign_keys(1)")
	v.SetDefault("store.queryTimeout", "3s")
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.dialTimeout", "2s")
	v.SetDefault("redis.readTimeout", "1s")
	v.SetDefault("redis.writeTimeout", "1s")
	v.SetDefault("redis.tenantCacheTTL", "1m")
	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "audit-records")
	v.SetDefault("rateLimit.requests", 100)
	v.SetDefault("rateLimit.window", "1m")
}

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults(viper.GetViper())

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	loaded, err := Load(viper.GetViper())
	if err != nil {
		return err
	}
	config = loaded
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Configuration, error) {
	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Configuration) Validate() error {
	switch c.Tenant.Mode {
	case TenantModeSubdomain, TenantModeHeader, TenantModeJWT, TenantModePath:
	default:
		return fmt.Errorf("invalid tenant.mode %q", c.Tenant.Mode)
	}
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverPostgres, StoreDriverNeo4j:
	default:
		return fmt.Errorf("invalid store.driver %q", c.Store.Driver)
	}
	switch c.Audit.Sink {
	case AuditSinkSQL, AuditSinkElasticsearch:
	default:
		return fmt.Errorf("invalid audit.sink %q", c.Audit.Sink)
	}
	if c.Audit.Sink == AuditSinkSQL && c.Store.Driver == StoreDriverNeo4j {
		return fmt.Errorf("audit.sink %q needs a SQL store.driver", AuditSinkSQL)
	}
	if c.Policy.CacheTTL <= 0 {
		return fmt.Errorf("policy.cacheTTL must be positive")
	}
	if len(c.Audit.Denylist) == 0 {
		c.Audit.Denylist = DefaultAuditDenylist
	}
	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
