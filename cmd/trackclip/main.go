// Package main provides the trackclip CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"trackclip/internal/clip"
	"trackclip/internal/core"
	"trackclip/internal/flood"
	httpserver "trackclip/internal/http"
	"trackclip/internal/render"
	"trackclip/internal/spotify"
	"trackclip/internal/store"
	"trackclip/internal/youtube"
	"trackclip/pkg/musiclink"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "TRACKCLIP"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trackclip",
	Short: "trackclip - short video previews for music tracks",
	Long: `trackclip turns a Spotify, Apple Music or YouTube reference into a short MP4 clip
cut from the middle of the track's official music video, and serves it over HTTP.`,
	RunE: runTrackclip,
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Delete every cached metadata record and clip",
	RunE:  runClearCache,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("cache-dir", defaults.Cache.Dir, "Directory holding metadata records and clips")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "Lifetime of metadata in the in-memory tier")
	flags.Int("cache-max-entries", defaults.Cache.MaxEntries, "Maximum metadata records in the in-memory tier")
	flags.Int("cache-bloom-capacity", defaults.Cache.BloomCapacity, "Expected number of cached clips")
	flags.Float64("cache-bloom-fp-rate", defaults.Cache.BloomFalsePositiveRate, "False positive rate of the known-clip filter")
	flags.String("render-temp-dir", defaults.Render.TempDir, "Directory for in-progress renders")
	flags.String("render-ffmpeg-path", defaults.Render.FFmpegPath, "Path of the ffmpeg binary")
	flags.Duration("render-timeout", defaults.Render.Timeout, "Hard deadline of one transcode")
	flags.String("youtube-ytdlp-path", defaults.YouTube.YtDlpPath, "Path of the yt-dlp binary")
	flags.Duration("youtube-info-timeout", defaults.YouTube.InfoTimeout, "Timeout of the player API lookup")
	flags.Duration("youtube-fallback-timeout", defaults.YouTube.FallbackTimeout, "Timeout of each yt-dlp lookup")
	flags.Duration("youtube-candidate-timeout", defaults.YouTube.CandidateTimeout, "Timeout of each search candidate lookup")
	flags.Duration("youtube-search-timeout", defaults.YouTube.SearchTimeout, "Timeout of each search results page")
	flags.Int("youtube-max-candidates", defaults.YouTube.MaxCandidates, "Search results inspected per phrasing")
	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("server-read-timeout", defaults.Server.ReadTimeout, "HTTP read timeout")
	flags.Duration("server-write-timeout", 0, "HTTP write timeout (0 derives it from the lookup and render timeouts)")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum preview requests per client per minute (0 disables)")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(clearCacheCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configureCache(cfg)
	configureRender(cfg)
	configureYouTube(cfg)
	configureServer(cfg)
	configureLog(cfg)
	configureApp(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
}

func configureCache(cfg *core.Config) {
	cfg.Cache.WithCacheDir(viper.GetString("cache-dir"))
	cfg.Cache.TTL = viper.GetDuration("cache-ttl")
	cfg.Cache.MaxEntries = viper.GetInt("cache-max-entries")
	cfg.Cache.BloomCapacity = viper.GetInt("cache-bloom-capacity")
	cfg.Cache.BloomFalsePositiveRate = viper.GetFloat64("cache-bloom-fp-rate")
}

func configureRender(cfg *core.Config) {
	cfg.Render.TempDir = viper.GetString("render-temp-dir")
	cfg.Render.FFmpegPath = viper.GetString("render-ffmpeg-path")
	cfg.Render.Timeout = viper.GetDuration("render-timeout")
}

func configureYouTube(cfg *core.Config) {
	cfg.YouTube.YtDlpPath = viper.GetString("youtube-ytdlp-path")
	cfg.YouTube.InfoTimeout = viper.GetDuration("youtube-info-timeout")
	cfg.YouTube.FallbackTimeout = viper.GetDuration("youtube-fallback-timeout")
	cfg.YouTube.CandidateTimeout = viper.GetDuration("youtube-candidate-timeout")
	cfg.YouTube.SearchTimeout = viper.GetDuration("youtube-search-timeout")
	cfg.YouTube.MaxCandidates = viper.GetInt("youtube-max-candidates")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ReadTimeout = viper.GetDuration("server-read-timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server-write-timeout")
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = cfg.RequestBudget()
	}
}

func configureLog(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute < 0 {
		cfg.App.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runTrackclip(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting trackclip",
		zap.String("version", core.Version),
		zap.String("cache_dir", config.Cache.Dir),
		zap.Bool("spotify_configured", config.Spotify.ClientID != ""))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

func runClearCache(_ *cobra.Command, _ []string) error {
	cache, err := store.Open(config.Cache, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	if err := cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Println("Cache cleared")
	return nil
}

type services struct {
	clips      *clip.Service
	floodgate  *flood.Floodgate
	httpServer *httpserver.Server
}

func initializeServices(ctx context.Context) (*services, error) {
	cache, err := store.Open(config.Cache, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	catalogs := map[string]core.Catalog{
		core.CatalogAppleMusic: core.NewAppleMusicCatalog(musiclink.NewAppleMusicClient()),
	}
	spotifyClient := spotify.NewClient(ctx, &config.Spotify, logger.Named("spotify"))
	if spotifyClient.Configured() {
		catalogs[core.CatalogSpotify] = spotifyClient
	}

	resolver := youtube.NewResolver(config.YouTube, logger.Named("youtube"))
	renderer := render.New(config.Render, logger.Named("render"))

	clips := clip.NewService(
		musiclink.NewManager(),
		catalogs,
		resolver,
		renderer,
		cache,
		config.Render.TempDir,
		logger.Named("clip"),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpserver.NewMetrics(registry)
	clips.SetRecorder(metrics)

	floodgate := flood.New(config.App.FloodLimitPerMinute)
	httpServer := httpserver.NewServer(&config.Server, clips, floodgate, metrics, registry, logger.Named("http"))

	return &services{
		clips:      clips,
		floodgate:  floodgate,
		httpServer: httpServer,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	defer svcs.floodgate.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	logger.Info("trackclip started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("trackclip stopped with error", zap.Error(err))
		return err
	}

	logger.Info("trackclip stopped gracefully")
	return nil
}

func validateConfig() error {
	if err := validateServerConfig(); err != nil {
		return err
	}

	if err := validateTimeouts(); err != nil {
		return err
	}

	if budget := config.RequestBudget(); config.Server.WriteTimeout < budget {
		logger.Warn("HTTP write timeout is shorter than a cold preview request may take",
			zap.Duration("write_timeout", config.Server.WriteTimeout),
			zap.Duration("request_budget", budget))
	}

	validateBinaries()
	return nil
}

func validateServerConfig() error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", config.Server.Port)
	}
	if config.Cache.Dir == "" {
		return errors.New("cache directory is required")
	}
	if config.Render.TempDir == "" {
		return errors.New("render temp directory is required")
	}
	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive, got %d", config.Cache.MaxEntries)
	}
	if rate := config.Cache.BloomFalsePositiveRate; rate <= 0 || rate >= 1 {
		return fmt.Errorf("bloom false positive rate must be within (0, 1), got %v", rate)
	}
	return nil
}

func validateTimeouts() error {
	timeouts := map[string]int64{
		"render-timeout":            int64(config.Render.Timeout),
		"youtube-info-timeout":      int64(config.YouTube.InfoTimeout),
		"youtube-fallback-timeout":  int64(config.YouTube.FallbackTimeout),
		"youtube-candidate-timeout": int64(config.YouTube.CandidateTimeout),
		"youtube-search-timeout":    int64(config.YouTube.SearchTimeout),
	}
	for name, value := range timeouts {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if config.YouTube.MaxCandidates <= 0 {
		return fmt.Errorf("youtube max candidates must be positive, got %d", config.YouTube.MaxCandidates)
	}
	return nil
}

// validateBinaries only warns, so the service can still answer cached requests.
func validateBinaries() {
	for _, bin := range []string{config.Render.FFmpegPath, config.YouTube.YtDlpPath} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn("External binary not found", zap.String("binary", bin), zap.Error(err))
		}
	}
}
