package core

import (
	"path/filepath"
	"time"
)

const (
	// ServiceName identifies the service in logs and responses.
	ServiceName = "trackclip"
	// Version is the service version.
	Version = "1.0.0"
	// DefaultServerPort is the default HTTP port.
	DefaultServerPort = 3000
	// DefaultCacheTTL is how long a metadata record stays in the fast tier.
	DefaultCacheTTL = time.Hour
	// DefaultCacheMaxEntries is the maximum key count of the fast tier.
	DefaultCacheMaxEntries = 500
	// DefaultBloomFalsePositiveRate is the target false positive rate of the known-clip filter.
	DefaultBloomFalsePositiveRate = 0.001
	// DefaultBloomCapacity is the expected number of durable clips.
	DefaultBloomCapacity = 10000
	// DefaultRenderTimeout is the hard wall-clock deadline of one transcode.
	DefaultRenderTimeout = 120 * time.Second
	// DefaultInfoTimeout bounds the stream-capable info lookup.
	DefaultInfoTimeout = 7 * time.Second
	// DefaultFallbackTimeout bounds each yt-dlp URL lookup.
	DefaultFallbackTimeout = 10 * time.Second
	// DefaultCandidateTimeout bounds the info lookup of one search candidate.
	DefaultCandidateTimeout = 8 * time.Second
	// DefaultSearchTimeout bounds one search results page fetch.
	DefaultSearchTimeout = 10 * time.Second
	// DefaultMaxCandidates is the number of search results inspected per phrasing.
	DefaultMaxCandidates = 5
	// DefaultFloodLimitPerMinute is the per-client preview request limit.
	DefaultFloodLimitPerMinute = 30
	// searchPhrasingCount is the number of query phrasings a search tries.
	searchPhrasingCount = 3
	// requestSlack covers the catalog lookup and response writing.
	requestSlack = 30 * time.Second
)

type Config struct {
	Spotify SpotifyConfig
	Cache   CacheConfig
	Render  RenderConfig
	YouTube YouTubeConfig
	Server  ServerConfig
	Log     LogConfig
	App     AppConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

type CacheConfig struct {
	Dir                    string
	MetadataDir            string
	ClipsDir               string
	TTL                    time.Duration
	MaxEntries             int
	BloomCapacity          int
	BloomFalsePositiveRate float64
}

type RenderConfig struct {
	TempDir    string
	FFmpegPath string
	Timeout    time.Duration
}

type YouTubeConfig struct {
	YtDlpPath        string
	InfoTimeout      time.Duration
	FallbackTimeout  time.Duration
	CandidateTimeout time.Duration
	SearchTimeout    time.Duration
	MaxCandidates    int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	FloodLimitPerMinute int
}

func DefaultConfig() *Config {
	cacheDir := "./cache"
	cfg := &Config{
		Cache: CacheConfig{
			Dir:                    cacheDir,
			MetadataDir:            filepath.Join(cacheDir, "metadata"),
			ClipsDir:               filepath.Join(cacheDir, "clips"),
			TTL:                    DefaultCacheTTL,
			MaxEntries:             DefaultCacheMaxEntries,
			BloomCapacity:          DefaultBloomCapacity,
			BloomFalsePositiveRate: DefaultBloomFalsePositiveRate,
		},
		Render: RenderConfig{
			TempDir:    "./temp",
			FFmpegPath: "ffmpeg",
			Timeout:    DefaultRenderTimeout,
		},
		YouTube: YouTubeConfig{
			YtDlpPath:        "yt-dlp",
			InfoTimeout:      DefaultInfoTimeout,
			FallbackTimeout:  DefaultFallbackTimeout,
			CandidateTimeout: DefaultCandidateTimeout,
			SearchTimeout:    DefaultSearchTimeout,
			MaxCandidates:    DefaultMaxCandidates,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        DefaultServerPort,
			ReadTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
	cfg.Server.WriteTimeout = cfg.RequestBudget()
	return cfg
}

// RequestBudget is the longest a cold preview request can take under the
// configured timeouts: every search phrasing with every candidate, the
// source resolution chain, the stream fallback and the render. A write
// timeout shorter than this can cut off a response whose clip still gets
// rendered and cached.
func (c *Config) RequestBudget() time.Duration {
	yt := c.YouTube
	search := searchPhrasingCount * (yt.SearchTimeout + time.Duration(yt.MaxCandidates)*yt.CandidateTimeout)
	resolve := yt.InfoTimeout + yt.FallbackTimeout
	open := yt.FallbackTimeout
	return search + resolve + open + c.Render.Timeout + requestSlack
}

// WithCacheDir points the metadata and clip directories below dir.
func (c *CacheConfig) WithCacheDir(dir string) {
	c.Dir = dir
	c.MetadataDir = filepath.Join(dir, "metadata")
	c.ClipsDir = filepath.Join(dir, "clips")
}
