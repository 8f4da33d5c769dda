package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/learnpath/learnpath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Recommend   RecommendConfig   `mapstructure:"recommend"`
	Encoder     EncoderConfig     `mapstructure:"encoder"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval"`
	Ranker      RankerConfig      `mapstructure:"ranker"`
	Exploration ExplorationConfig `mapstructure:"exploration"`
	Serving     ServingConfig     `mapstructure:"serving"`
}

// LogConfig stores zerolog settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// CatalogConfig selects and configures the content/role vector backends.
type CatalogConfig struct {
	Backend          string `mapstructure:"backend" validate:"oneof=memory libsql chromem"` // "memory", "libsql", "chromem"
	DatabasePath     string `mapstructure:"database_path"`                                  // libsql file
	RoleVectorsPath  string `mapstructure:"role_vectors_path"`                              // JSON role table for the memory backend
	ContentPath      string `mapstructure:"content_path"`                                   // JSON content nodes for memory/chromem backends
	WatchRoleVectors bool   `mapstructure:"watch_role_vectors"`                             // Reload the role table on file change
	ChromemDir       string `mapstructure:"chromem_dir"`                                    // Empty keeps chromem in memory
	Collection       string `mapstructure:"collection" validate:"required"`
}

// RecommendConfig stores the pipeline-level settings.
type RecommendConfig struct {
	Dimension     int `mapstructure:"dimension" validate:"gt=0,lte=65536"` // Embedding dimension shared by learner and content vectors
	K             int `mapstructure:"k" validate:"gte=0"`                  // Result size
	CandidatePool int `mapstructure:"candidate_pool" validate:"gte=0"`     // Retrieval top-k before ranking
	ScoreWorkers  int `mapstructure:"score_workers" validate:"gte=1"`      // Max goroutines in the scoring stage
}

// EncoderConfig weights the three profile feature groups.
type EncoderConfig struct {
	SkillWeight      float64 `mapstructure:"skill_weight" validate:"gte=0"`
	StyleWeight      float64 `mapstructure:"style_weight" validate:"gte=0"`
	AspirationWeight float64 `mapstructure:"aspiration_weight" validate:"gte=0"`
}

// RetrievalConfig bounds calls to the similarity-search collaborator.
type RetrievalConfig struct {
	Timeout                 time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BreakerMaxRequests      uint32        `mapstructure:"breaker_max_requests"`      // Requests allowed while half-open
	BreakerInterval         time.Duration `mapstructure:"breaker_interval"`          // Cyclic reset period for counts
	BreakerTimeout          time.Duration `mapstructure:"breaker_timeout"`           // Open duration before half-open
	BreakerFailureThreshold uint32        `mapstructure:"breaker_failure_threshold"` // Consecutive failures that trip the breaker
}

// RankerConfig selects the success predictor.
type RankerConfig struct {
	Model             string  `mapstructure:"model" validate:"oneof=cosine logistic"`
	WeightsPath       string  `mapstructure:"weights_path"` // Trained logistic weights (JSON)
	MarketBoostWeight float64 `mapstructure:"market_boost_weight" validate:"gte=0"`
	LearningRate      float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Epochs            int     `mapstructure:"epochs" validate:"gt=0"`
}

// ExplorationConfig stores serendipity injection settings.
type ExplorationConfig struct {
	Probability float64 `mapstructure:"probability" validate:"gte=0,lte=1"`
	Boost       float64 `mapstructure:"boost" validate:"gt=0"`
	Seed        uint64  `mapstructure:"seed"` // Zero seeds every request independently
}

// ServingConfig stores caller-side fallback settings.
type ServingConfig struct {
	FallbackEnabled       bool     `mapstructure:"fallback_enabled"`
	FallbackCacheCapacity int      `mapstructure:"fallback_cache_capacity" validate:"gte=0"`
	FallbackTTLSeconds    int      `mapstructure:"fallback_ttl_seconds" validate:"gte=0"`
	PopularNodes          []string `mapstructure:"popular_nodes"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.AutomaticEnv()
	// recommend.k becomes RECOMMEND_K
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file on the search path; defaults and env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults registers every key's default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Catalog defaults (in-memory until a backend is configured)
	v.SetDefault("catalog.backend", "memory")
	v.SetDefault("catalog.database_path", internal.DefaultDatabaseDSN)
	v.SetDefault("catalog.role_vectors_path", "")
	v.SetDefault("catalog.content_path", "")
	v.SetDefault("catalog.watch_role_vectors", false)
	v.SetDefault("catalog.chromem_dir", "")
	v.SetDefault("catalog.collection", "content_nodes")

	// Pipeline defaults
	v.SetDefault("recommend.dimension", internal.DefaultEmbeddingDim)
	v.SetDefault("recommend.k", 5)
	v.SetDefault("recommend.candidate_pool", 50)
	v.SetDefault("recommend.score_workers", 4)

	// Encoder defaults
	v.SetDefault("encoder.skill_weight", 1.0)
	v.SetDefault("encoder.style_weight", 0.5)
	v.SetDefault("encoder.aspiration_weight", 1.0)

	// Retrieval defaults
	v.SetDefault("retrieval.timeout", "200ms")
	v.SetDefault("retrieval.breaker_max_requests", 1)
	v.SetDefault("retrieval.breaker_interval", "60s")
	v.SetDefault("retrieval.breaker_timeout", "30s")
	v.SetDefault("retrieval.breaker_failure_threshold", 5)

	// Ranker defaults
	v.SetDefault("ranker.model", "cosine")
	v.SetDefault("ranker.weights_path", "")
	v.SetDefault("ranker.market_boost_weight", 0.0) // Disabled: scores stay raw cosine
	v.SetDefault("ranker.learning_rate", 0.1)
	v.SetDefault("ranker.epochs", 200)

	// Exploration defaults
	v.SetDefault("exploration.probability", 0.05)
	v.SetDefault("exploration.boost", 1.2)
	v.SetDefault("exploration.seed", 0)

	// Serving defaults
	v.SetDefault("serving.fallback_enabled", true)
	v.SetDefault("serving.fallback_cache_capacity", 1000)
	v.SetDefault("serving.fallback_ttl_seconds", 3600) // 1 hour
	v.SetDefault("serving.popular_nodes", []string{})
}

// Validate checks value ranges with go-playground/validator.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
