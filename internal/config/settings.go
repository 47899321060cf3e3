package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthSettings configuration for HTTP API authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// StreamSettings configuration for the Redis Streams consumer
type StreamSettings struct {
	Addr          string        `mapstructure:"addr"`
	Stream        string        `mapstructure:"stream"`
	Group         string        `mapstructure:"group"`
	ReadCount     int64         `mapstructure:"read_count"`
	ReadBlock     time.Duration `mapstructure:"read_block"`
	ClaimMinIdle  time.Duration `mapstructure:"claim_min_idle"`
	ClaimInterval time.Duration `mapstructure:"claim_interval"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
}

// IndexSettings configuration for index storage
type IndexSettings struct {
	Dir          string `mapstructure:"dir"`
	SynonymsPath string `mapstructure:"synonyms_path"`
}

// SearchSettings configuration for query execution
type SearchSettings struct {
	CandidatePool    int           `mapstructure:"candidate_pool"`
	Timeout          time.Duration `mapstructure:"timeout"`
	DefaultPageSize  int           `mapstructure:"default_page_size"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	ExplainScanLimit int           `mapstructure:"explain_scan_limit"`
}

// Settings application settings
type Settings struct {
	Host   string         `mapstructure:"host"`
	Port   int            `mapstructure:"port"`
	Auth   AuthSettings   `mapstructure:"auth"`
	Stream StreamSettings `mapstructure:"stream"`
	Index  IndexSettings  `mapstructure:"index"`
	Search SearchSettings `mapstructure:"search"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("stream.addr", "localhost:6379")
	v.SetDefault("stream.stream", "dcse_stream")
	v.SetDefault("stream.group", "indexer_group")
	v.SetDefault("stream.read_count", int64(20))
	v.SetDefault("stream.read_block", 5*time.Second)
	v.SetDefault("stream.claim_min_idle", 30*time.Second)
	v.SetDefault("stream.claim_interval", 30*time.Second)
	v.SetDefault("stream.error_backoff", 2*time.Second)

	v.SetDefault("index.dir", "searchd-index")
	v.SetDefault("index.synonyms_path", "")

	v.SetDefault("search.candidate_pool", 200)
	v.SetDefault("search.timeout", 200*time.Millisecond)
	v.SetDefault("search.default_page_size", 20)
	v.SetDefault("search.refresh_interval", 2*time.Second)
	v.SetDefault("search.explain_scan_limit", 1000)

	// Environment variables
	v.SetEnvPrefix("SEARCHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "SEARCHD_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "SEARCHD_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "SEARCHD_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "SEARCHD_AUTH_API_KEYS")

	_ = v.BindEnv("stream.addr", "SEARCHD_STREAM_ADDR")
	_ = v.BindEnv("stream.stream", "SEARCHD_STREAM_NAME")
	_ = v.BindEnv("stream.group", "SEARCHD_STREAM_GROUP")
	_ = v.BindEnv("stream.read_count", "SEARCHD_STREAM_READ_COUNT")
	_ = v.BindEnv("stream.read_block", "SEARCHD_STREAM_READ_BLOCK")
	_ = v.BindEnv("stream.claim_min_idle", "SEARCHD_STREAM_CLAIM_MIN_IDLE")
	_ = v.BindEnv("stream.claim_interval", "SEARCHD_STREAM_CLAIM_INTERVAL")
	_ = v.BindEnv("stream.error_backoff", "SEARCHD_STREAM_ERROR_BACKOFF")

	_ = v.BindEnv("index.dir", "SEARCHD_INDEX_DIR")
	_ = v.BindEnv("index.synonyms_path", "SEARCHD_INDEX_SYNONYMS_PATH")

	_ = v.BindEnv("search.candidate_pool", "SEARCHD_SEARCH_CANDIDATE_POOL")
	_ = v.BindEnv("search.timeout", "SEARCHD_SEARCH_TIMEOUT")
	_ = v.BindEnv("search.default_page_size", "SEARCHD_SEARCH_DEFAULT_PAGE_SIZE")
	_ = v.BindEnv("search.refresh_interval", "SEARCHD_SEARCH_REFRESH_INTERVAL")
	_ = v.BindEnv("search.explain_scan_limit", "SEARCHD_SEARCH_EXPLAIN_SCAN_LIMIT")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))

		_ = v.BindPFlag("stream.addr", flags.Lookup("stream-addr"))
		_ = v.BindPFlag("stream.stream", flags.Lookup("stream-name"))
		_ = v.BindPFlag("stream.group", flags.Lookup("stream-group"))
		_ = v.BindPFlag("index.dir", flags.Lookup("index-dir"))
		_ = v.BindPFlag("index.synonyms_path", flags.Lookup("synonyms"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("SEARCHD_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}

	return &settings, nil
}

// ValidateSettings checks for conflicting or nonsensical configurations.
func ValidateSettings(s *Settings) error {
	if s.Port <= 0 || s.Port > 65535 {
		return errors.New("port must be in range 1-65535")
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validateStreamSettings(&s.Stream); err != nil {
		return err
	}

	if s.Index.Dir == "" {
		return errors.New("index-dir cannot be empty")
	}

	return validateSearchSettings(&s.Search)
}

func validateStreamSettings(st *StreamSettings) error {
	if st.Addr == "" {
		return errors.New("stream-addr cannot be empty")
	}
	if st.Stream == "" {
		return errors.New("stream-name cannot be empty")
	}
	if st.Group == "" {
		return errors.New("stream-group cannot be empty")
	}
	if st.ReadCount <= 0 {
		return errors.New("stream read_count must be positive")
	}
	if st.ReadBlock <= 0 {
		return errors.New("stream read_block must be positive")
	}
	if st.ClaimMinIdle <= 0 {
		return errors.New("stream claim_min_idle must be positive")
	}
	if st.ClaimInterval <= 0 {
		return errors.New("stream claim_interval must be positive")
	}
	if st.ErrorBackoff <= 0 {
		return errors.New("stream error_backoff must be positive")
	}
	return nil
}

func validateSearchSettings(se *SearchSettings) error {
	if se.CandidatePool <= 0 {
		return errors.New("search candidate_pool must be positive")
	}
	if se.Timeout <= 0 {
		return errors.New("search timeout must be positive")
	}
	if se.DefaultPageSize <= 0 {
		return errors.New("search default_page_size must be positive")
	}
	if se.DefaultPageSize > se.CandidatePool {
		return errors.New("search default_page_size cannot exceed candidate_pool")
	}
	if se.RefreshInterval <= 0 {
		return errors.New("search refresh_interval must be positive")
	}
	if se.ExplainScanLimit <= 0 {
		return errors.New("search explain_scan_limit must be positive")
	}
	return nil
}
