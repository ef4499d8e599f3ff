package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/labelstore"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/remote"
	"github.com/hupe1980/labelstore/remote/minio"
	"github.com/hupe1980/labelstore/remote/s3"
	"github.com/hupe1980/labelstore/resource"
	"github.com/hupe1980/labelstore/store"
	"github.com/hupe1980/labelstore/window"
)

// Config is the resolved command line configuration.
type Config struct {
	Dataset          string
	CacheDir         string
	AutoSaveInterval time.Duration
	Window           window.Config
	Backend          string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioSecure      bool
	Retry            remote.RetryPolicy
	Limits           resource.Config
	LogLevel         string
	LogFormat        string
	Backup           store.Compression
	MetricsOut       string
}

// setupFlags registers the persistent flags shared by every command.
func setupFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String("dataset", "", WrapString("Dataset locator: a local path or s3:// URI. Falls back to DATASET_PATH"))
	flags.String("cache-dir", "", WrapString("Root of the local cache for remote datasets and images (default: XDG cache dir)"))
	flags.Duration("autosave-interval", store.DefaultAutoSaveInterval, WrapString("Debounce delay between the first unsaved change and the automatic write; 0 disables auto-save"))
	flags.Int("window-size", window.DefaultSize, WrapString("Datasets up to this many images are cached whole"))
	flags.Int("window-head", window.DefaultHead, WrapString("Leading images cached for larger datasets"))
	flags.Int("window-tail", window.DefaultTail, WrapString("Trailing images cached for larger datasets"))
	flags.String("backend", "s3", WrapString("Object store backend for s3:// locators (s3, minio)"))
	flags.String("minio-endpoint", "", WrapString("MinIO host:port (default: AWS_ENDPOINT_URL_S3 without scheme)"))
	flags.String("minio-access-key", "", WrapString("MinIO access key (default: AWS_ACCESS_KEY_ID)"))
	flags.String("minio-secret-key", "", WrapString("MinIO secret key (default: AWS_SECRET_ACCESS_KEY)"))
	flags.Bool("minio-secure", false, WrapString("Use TLS for MinIO"))
	flags.Int("retry-attempts", 3, WrapString("Attempts per remote call"))
	flags.Duration("retry-base-delay", time.Second, WrapString("Delay before the second attempt; doubled for each further attempt"))
	flags.Float64("requests-per-second", 0, WrapString("Cap on remote calls per second; 0 is unlimited"))
	flags.Int("max-concurrent-downloads", 4, WrapString("Parallel image downloads"))
	flags.String("log-level", "info", WrapString("Level at which logs will be output (debug, info, warn, error)"))
	flags.String("log-format", "text", WrapString("Log output format (text, json)"))
	flags.String("backup", "none", WrapString("Keep a compressed copy of the previous file version on save (none, zstd, lz4)"))
	flags.String("metrics-out", "", WrapString("Write metrics in Prometheus text format to this file on exit ('-' for stderr)"))
}

// initConfig loads env files and wires environment lookup into v.
func initConfig(v *viper.Viper) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v.SetEnvPrefix("labelstore")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadConfig reads the configuration from flags bound to v and the
// environment.
func loadConfig(v *viper.Viper) (Config, error) {
	backup, err := store.ParseCompression(v.GetString("backup"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Dataset:          v.GetString("dataset"),
		CacheDir:         v.GetString("cache-dir"),
		AutoSaveInterval: v.GetDuration("autosave-interval"),
		Window: window.Config{
			Size: v.GetInt("window-size"),
			Head: v.GetInt("window-head"),
			Tail: v.GetInt("window-tail"),
		},
		Backend:        strings.ToLower(v.GetString("backend")),
		MinioEndpoint:  v.GetString("minio-endpoint"),
		MinioAccessKey: v.GetString("minio-access-key"),
		MinioSecretKey: v.GetString("minio-secret-key"),
		MinioSecure:    v.GetBool("minio-secure"),
		Retry: remote.RetryPolicy{
			MaxAttempts: v.GetInt("retry-attempts"),
			BaseDelay:   v.GetDuration("retry-base-delay"),
		},
		Limits: resource.Config{
			MaxConcurrentDownloads: v.GetInt64("max-concurrent-downloads"),
			RequestsPerSecond:      v.GetFloat64("requests-per-second"),
		},
		LogLevel:   v.GetString("log-level"),
		LogFormat:  strings.ToLower(v.GetString("log-format")),
		Backup:     backup,
		MetricsOut: v.GetString("metrics-out"),
	}

	if cfg.Dataset == "" {
		cfg.Dataset = os.Getenv("DATASET_PATH")
	}
	if cfg.Retry.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("retry-attempts must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	switch cfg.Backend {
	case "s3", "minio":
	default:
		return Config{}, fmt.Errorf("invalid backend: %s (expected one of: s3, minio)", cfg.Backend)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("invalid log format: %s (expected one of: text, json)", cfg.LogFormat)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s (expected one of: debug, info, warn, error)", s)
	}
	return level, nil
}

// logger builds the process logger. Logs go to stderr so command output on
// stdout stays machine readable.
func (cfg Config) logger() *labelstore.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		return labelstore.NewJSONLogger(level)
	}
	return labelstore.NewTextLogger(level)
}

// ObjectStoreFactory creates the backend for remote locators.
type ObjectStoreFactory func(ctx context.Context, cfg Config) (remote.ObjectStore, error)

// DefaultObjectStore builds the s3 or minio backend from cfg and the AWS
// environment.
func DefaultObjectStore(ctx context.Context, cfg Config) (remote.ObjectStore, error) {
	if cfg.Backend == "minio" {
		endpoint := cfg.MinioEndpoint
		secure := cfg.MinioSecure
		if endpoint == "" {
			endpoint = os.Getenv(s3.EndpointEnv)
			if strings.HasPrefix(endpoint, "https://") {
				secure = true
			}
			endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		}
		if endpoint == "" {
			return nil, fmt.Errorf("minio backend requires --minio-endpoint or %s", s3.EndpointEnv)
		}
		return minio.New(minio.Config{
			Endpoint:  endpoint,
			AccessKey: firstNonEmpty(cfg.MinioAccessKey, os.Getenv("AWS_ACCESS_KEY_ID")),
			SecretKey: firstNonEmpty(cfg.MinioSecretKey, os.Getenv("AWS_SECRET_ACCESS_KEY")),
			Region:    s3.Region(),
			Secure:    secure,
		})
	}
	return s3.New(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sessionOptions translates cfg into Open options.
func (cfg Config) sessionOptions(logger *labelstore.Logger, collector metrics.Collector) []labelstore.Option {
	return []labelstore.Option{
		labelstore.WithLogger(logger),
		labelstore.WithCacheDir(cfg.CacheDir),
		labelstore.WithAutoSaveInterval(cfg.AutoSaveInterval),
		labelstore.WithWindow(cfg.Window),
		labelstore.WithRetryPolicy(cfg.Retry),
		labelstore.WithLimits(cfg.Limits),
		labelstore.WithBackup(cfg.Backup),
		labelstore.WithMetricsCollector(collector),
	}
}
