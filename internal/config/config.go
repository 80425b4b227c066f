// Package config handles configuration loading and validation.
//
// Values resolve in layers: built-in defaults, then an optional docvec.yaml,
// then environment variables. The environment names follow the deployment
// convention (VECTOR_STORE, EMBEDDING_DIM, MONGO_*, REDIS_*) so the same
// container environment drives every backend.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	VectorStore VectorStoreConfig `mapstructure:"vectorstore" yaml:"vectorstore"`
	Mongo       MongoConfig       `mapstructure:"mongo" yaml:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite" yaml:"sqlite"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Chunking    ChunkingConfig    `mapstructure:"chunking" yaml:"chunking"`
	Search      SearchConfig      `mapstructure:"search" yaml:"search"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// VectorStoreConfig selects the backend and the pipeline-wide dimension.
type VectorStoreConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`   // mongodb, redis, sqlitevec
	Dimension int    `mapstructure:"dimension" yaml:"dimension"` // embedding dimension D
}

// MongoConfig contains MongoDB backend configuration.
type MongoConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Username   string `mapstructure:"username" yaml:"username"`
	Password   string `mapstructure:"password" yaml:"password"`
	Direct     bool   `mapstructure:"direct" yaml:"direct"` // directConnection, for single-node replica sets
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// RedisConfig contains Redis backend configuration.
type RedisConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	DB        int    `mapstructure:"db" yaml:"db"`
	Password  string `mapstructure:"password" yaml:"password"`
	IndexName string `mapstructure:"index_name" yaml:"index_name"`
	DocPrefix string `mapstructure:"doc_prefix" yaml:"doc_prefix"`
	SSL       bool   `mapstructure:"ssl" yaml:"ssl"`
	SSLCert   string `mapstructure:"ssl_cert" yaml:"ssl_cert"`
	SSLKey    string `mapstructure:"ssl_key" yaml:"ssl_key"`
	SSLCA     string `mapstructure:"ssl_ca" yaml:"ssl_ca"`
}

// SQLiteConfig contains sqlite-vec backend configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`     // ollama, openai, static
	Model     string `mapstructure:"model" yaml:"model"`           // model name
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`     // API endpoint
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"` // texts per batch
}

// ChunkingConfig contains chunking strategy configuration.
type ChunkingConfig struct {
	Strategy     string `mapstructure:"strategy" yaml:"strategy"`             // paragraph
	MaxChunkSize int    `mapstructure:"max_chunk_size" yaml:"max_chunk_size"` // max chars per chunk
}

// SearchConfig contains search configuration.
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"` // default top_k
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		VectorStore: VectorStoreConfig{
			Provider:  "mongodb",
			Dimension: 384,
		},
		Mongo: MongoConfig{
			Host:       "localhost",
			Port:       27017,
			Direct:     true,
			Database:   "vectordb",
			Collection: "embeddings",
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			IndexName: "embeddings_idx",
			DocPrefix: "doc:",
		},
		SQLite: SQLiteConfig{
			Path: "docvec.db",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			Endpoint:  "http://localhost:11434",
			BatchSize: 32,
		},
		Chunking: ChunkingConfig{
			Strategy:     "paragraph",
			MaxChunkSize: 2000,
		},
		Search: SearchConfig{
			DefaultLimit: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigFile is the file name looked up in the working directory.
const DefaultConfigFile = "docvec.yaml"

// Load loads configuration: defaults, then the optional YAML file at path
// (or ./docvec.yaml when path is empty), then environment variables.
func Load(path string) (*Config, []string, error) {
	warnings := []string{}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path == "" {
		path = DefaultConfigFile
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
			warnings = append(warnings, "No config file found, using defaults and environment")
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, warnings, nil
}

// setDefaults registers every key so environment overrides are seen by
// Unmarshal even without a config file.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("vectorstore.provider", def.VectorStore.Provider)
	v.SetDefault("vectorstore.dimension", def.VectorStore.Dimension)

	v.SetDefault("mongo.host", def.Mongo.Host)
	v.SetDefault("mongo.port", def.Mongo.Port)
	v.SetDefault("mongo.username", def.Mongo.Username)
	v.SetDefault("mongo.password", def.Mongo.Password)
	v.SetDefault("mongo.direct", def.Mongo.Direct)
	v.SetDefault("mongo.database", def.Mongo.Database)
	v.SetDefault("mongo.collection", def.Mongo.Collection)

	v.SetDefault("redis.host", def.Redis.Host)
	v.SetDefault("redis.port", def.Redis.Port)
	v.SetDefault("redis.db", def.Redis.DB)
	v.SetDefault("redis.password", def.Redis.Password)
	v.SetDefault("redis.index_name", def.Redis.IndexName)
	v.SetDefault("redis.doc_prefix", def.Redis.DocPrefix)
	v.SetDefault("redis.ssl", def.Redis.SSL)
	v.SetDefault("redis.ssl_cert", def.Redis.SSLCert)
	v.SetDefault("redis.ssl_key", def.Redis.SSLKey)
	v.SetDefault("redis.ssl_ca", def.Redis.SSLCA)

	v.SetDefault("sqlite.path", def.SQLite.Path)

	v.SetDefault("embedding.provider", def.Embedding.Provider)
	v.SetDefault("embedding.model", def.Embedding.Model)
	v.SetDefault("embedding.endpoint", def.Embedding.Endpoint)
	v.SetDefault("embedding.api_key", def.Embedding.APIKey)
	v.SetDefault("embedding.batch_size", def.Embedding.BatchSize)

	v.SetDefault("chunking.strategy", def.Chunking.Strategy)
	v.SetDefault("chunking.max_chunk_size", def.Chunking.MaxChunkSize)

	v.SetDefault("search.default_limit", def.Search.DefaultLimit)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

// bindEnv maps deployment environment variables onto config keys. The
// replacer covers names that match the key path (MONGO_HOST, REDIS_SSL_CERT);
// the explicit binds cover the historical names that do not.
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("vectorstore.provider", "VECTOR_STORE")
	_ = v.BindEnv("vectorstore.dimension", "EMBEDDING_DIM")
	_ = v.BindEnv("mongo.database", "MONGO_DATASTORE")
	_ = v.BindEnv("redis.index_name", "REDIS_INDEX_NAME")
	_ = v.BindEnv("redis.doc_prefix", "REDIS_DOC_PREFIX")
	_ = v.BindEnv("embedding.api_key", "OPENAI_API_KEY")
}

// Save writes configuration to the given YAML file.
func Save(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("vectorstore", cfg.VectorStore)
	v.Set("mongo", cfg.Mongo)
	v.Set("redis", cfg.Redis)
	v.Set("sqlite", cfg.SQLite)
	v.Set("embedding", cfg.Embedding)
	v.Set("chunking", cfg.Chunking)
	v.Set("search", cfg.Search)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// MongoURI builds the connection string from the discrete settings.
// Credentials are URL-escaped so passwords with reserved characters work.
func (c *Config) MongoURI() string {
	var auth string
	if c.Mongo.Username != "" {
		auth = url.QueryEscape(c.Mongo.Username)
		if c.Mongo.Password != "" {
			auth += ":" + url.QueryEscape(c.Mongo.Password)
		}
		auth += "@"
	}
	uri := fmt.Sprintf("mongodb://%s%s:%d/", auth, c.Mongo.Host, c.Mongo.Port)
	if c.Mongo.Direct {
		uri += "?directConnection=true"
	}
	return uri
}

// RedisAddr returns the host:port address.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validStores := map[string]bool{
		"mongodb": true, "redis": true, "sqlitevec": true,
	}
	if !validStores[cfg.VectorStore.Provider] {
		errs = append(errs, fmt.Errorf("invalid vector store: %s (valid: mongodb, redis, sqlitevec)", cfg.VectorStore.Provider))
	}
	if cfg.VectorStore.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("invalid embedding dimension: %d", cfg.VectorStore.Dimension))
	}

	validEmbeddingProviders := map[string]bool{
		"ollama": true, "openai": true, "static": true,
	}
	if !validEmbeddingProviders[cfg.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider))
	}

	validChunkingStrategies := map[string]bool{
		"paragraph": true,
	}
	if !validChunkingStrategies[cfg.Chunking.Strategy] {
		errs = append(errs, fmt.Errorf("invalid chunking strategy: %s", cfg.Chunking.Strategy))
	}
	if cfg.Chunking.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid max chunk size: %d", cfg.Chunking.MaxChunkSize))
	}

	switch cfg.VectorStore.Provider {
	case "mongodb":
		if cfg.Mongo.Host == "" {
			errs = append(errs, fmt.Errorf("mongo host is required"))
		}
		if cfg.Mongo.Username != "" && cfg.Mongo.Password == "" {
			errs = append(errs, fmt.Errorf("mongo username set but password missing"))
		}
	case "redis":
		if cfg.Redis.Host == "" {
			errs = append(errs, fmt.Errorf("redis host is required"))
		}
		if cfg.Redis.SSL && (cfg.Redis.SSLCert == "") != (cfg.Redis.SSLKey == "") {
			errs = append(errs, fmt.Errorf("redis ssl_cert and ssl_key must be set together"))
		}
	case "sqlitevec":
		if cfg.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("sqlite path is required"))
		}
	}

	if cfg.Search.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("invalid default search limit: %d", cfg.Search.DefaultLimit))
	}

	return errs
}

// Redacted returns a copy safe for logging: credentials are elided, the
// rest is unchanged.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Mongo.Password != "" {
		out.Mongo.Password = "***"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "***"
	}
	if out.Embedding.APIKey != "" {
		out.Embedding.APIKey = "***"
	}
	return &out
}
