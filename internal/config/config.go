package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyUpdateOwner           = "update.owner"
	KeyUpdateRepo            = "update.repo"
	KeyUpdateProduct         = "update.product"
	KeyUpdateAPIBaseURL      = "update.api-base-url"
	KeyUpdateWebBaseURL      = "update.web-base-url"
	KeyUpdateUserAgent       = "update.user-agent"
	KeyUpdateMetadataTimeout = "update.metadata-timeout"
	KeyUpdateDownloadTimeout = "update.download-timeout"
	KeyUpdateDownloadRetries = "update.download-retries"
	KeyUpdateCacheTTL        = "update.cache-ttl"
	KeyUpdateCheckInterval   = "update.check-interval"

	KeyOutputFormat = "output.format"
	KeyDebug        = "debug"
)

const (
	DefaultOwner           = "Godi13"
	DefaultRepo            = "mirror"
	DefaultProduct         = "mirror"
	DefaultAPIBaseURL      = "https://api.github.com"
	DefaultWebBaseURL      = "https://github.com"
	DefaultUserAgent       = "mirror-app"
	DefaultMetadataTimeout = 10 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
	DefaultDownloadRetries = 2
	DefaultCacheTTL        = 10 * time.Minute
	DefaultCheckInterval   = time.Hour

	envPrefix = "MIRROR"
)

type initSettings struct {
	userConfigPath string
}

// Option configures Initialize behaviour. Useful for tests to override paths.
type Option func(*initSettings)

// WithUserConfig overrides the default user config path.
func WithUserConfig(path string) Option {
	return func(cfg *initSettings) {
		cfg.userConfigPath = path
	}
}

var (
	configOnce sync.Once
	configMu   sync.RWMutex
	configInst *viper.Viper
	initErr    error
)

// Initialize loads configuration using the precedence:
// defaults < user config < environment variables < overrides.
func Initialize(opts ...Option) error {
	configOnce.Do(func() {
		settings := initSettings{}
		for _, opt := range opts {
			opt(&settings)
		}
		initErr = configure(&settings)
	})
	return initErr
}

// ApplyOverrides injects values typically coming from CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	configMu.Lock()
	defer configMu.Unlock()
	if configInst == nil {
		return fmt.Errorf("configuration not initialized")
	}
	for k, v := range overrides {
		configInst.Set(k, v)
	}
	return nil
}

// GetString fetches a string configuration value, initializing on demand.
func GetString(key string) string {
	v, err := getViper()
	if err != nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool fetches a bool configuration value, initializing on demand.
func GetBool(key string) bool {
	v, err := getViper()
	if err != nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt fetches an integer configuration value, initializing on demand.
func GetInt(key string) int {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration fetches a duration configuration value, initializing on demand.
func GetDuration(key string) time.Duration {
	v, err := getViper()
	if err != nil {
		return 0
	}
	return v.GetDuration(key)
}

// UpdateSettings is the typed view of the update.* keys.
type UpdateSettings struct {
	Owner           string
	Repo            string
	Product         string
	APIBaseURL      string
	WebBaseURL      string
	UserAgent       string
	MetadataTimeout time.Duration
	DownloadTimeout time.Duration
	DownloadRetries int
	CacheTTL        time.Duration
	CheckInterval   time.Duration
}

// Update returns the current update settings. Non-positive durations and
// blank strings fall back to their defaults so a bad config value never
// disables a timeout.
func Update() UpdateSettings {
	s := UpdateSettings{
		Owner:           stringOr(GetString(KeyUpdateOwner), DefaultOwner),
		Repo:            stringOr(GetString(KeyUpdateRepo), DefaultRepo),
		Product:         stringOr(GetString(KeyUpdateProduct), DefaultProduct),
		APIBaseURL:      strings.TrimRight(stringOr(GetString(KeyUpdateAPIBaseURL), DefaultAPIBaseURL), "/"),
		WebBaseURL:      strings.TrimRight(stringOr(GetString(KeyUpdateWebBaseURL), DefaultWebBaseURL), "/"),
		UserAgent:       stringOr(GetString(KeyUpdateUserAgent), DefaultUserAgent),
		MetadataTimeout: durationOr(GetDuration(KeyUpdateMetadataTimeout), DefaultMetadataTimeout),
		DownloadTimeout: durationOr(GetDuration(KeyUpdateDownloadTimeout), DefaultDownloadTimeout),
		DownloadRetries: GetInt(KeyUpdateDownloadRetries),
		CacheTTL:        durationOr(GetDuration(KeyUpdateCacheTTL), DefaultCacheTTL),
		CheckInterval:   durationOr(GetDuration(KeyUpdateCheckInterval), DefaultCheckInterval),
	}
	if s.DownloadRetries < 0 {
		s.DownloadRetries = 0
	}
	return s
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func configure(settings *initSettings) error {
	userConfigPath := strings.TrimSpace(settings.userConfigPath)
	if userConfigPath == "" {
		path, err := defaultUserConfigPath()
		if err != nil {
			return err
		}
		userConfigPath = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := mergeConfigFile(v, userConfigPath); err != nil {
		return fmt.Errorf("load user config: %w", err)
	}

	configMu.Lock()
	defer configMu.Unlock()
	configInst = v
	return nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	//nolint:gosec // G304: Config loader intentionally reads the user config file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, ".mirror", "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyUpdateOwner, DefaultOwner)
	v.SetDefault(KeyUpdateRepo, DefaultRepo)
	v.SetDefault(KeyUpdateProduct, DefaultProduct)
	v.SetDefault(KeyUpdateAPIBaseURL, DefaultAPIBaseURL)
	v.SetDefault(KeyUpdateWebBaseURL, DefaultWebBaseURL)
	v.SetDefault(KeyUpdateUserAgent, DefaultUserAgent)
	v.SetDefault(KeyUpdateMetadataTimeout, DefaultMetadataTimeout)
	v.SetDefault(KeyUpdateDownloadTimeout, DefaultDownloadTimeout)
	v.SetDefault(KeyUpdateDownloadRetries, DefaultDownloadRetries)
	v.SetDefault(KeyUpdateCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeyUpdateCheckInterval, DefaultCheckInterval)
	v.SetDefault(KeyOutputFormat, "rich")
	v.SetDefault(KeyDebug, false)
}

func getViper() (*viper.Viper, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	configMu.RLock()
	defer configMu.RUnlock()
	if configInst == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return configInst, nil
}

// reset clears package state for tests.
//
//nolint:unused // Used in config_test.go
func reset() {
	configMu.Lock()
	defer configMu.Unlock()
	configInst = nil
	initErr = nil
	configOnce = sync.Once{}
}

// ResetForTesting clears package state for tests in other packages and
// initializes from an empty user config inside the test's temp dir.
// Returns a cleanup function that should be deferred.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	_ = Initialize(WithUserConfig(filepath.Join(tmp, "config.yaml")))
	return reset
}
