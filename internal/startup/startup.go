package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"photo-ingest/internal/logging"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// ThumbnailProfile selects the thumbnail bound.
type ThumbnailProfile string

const (
	// ProfileStandard bounds thumbnails to 960px on the long edge.
	ProfileStandard ThumbnailProfile = "standard"
	// ProfileCompact bounds thumbnails to 640px on the long edge.
	ProfileCompact ThumbnailProfile = "compact"
)

// Dim returns the long-edge bound for the profile.
func (p ThumbnailProfile) Dim() int {
	if p == ProfileCompact {
		return 640
	}
	return 960
}

const (
	// DefaultBaseDomain is the fallback public domain used when no
	// BASE_DOMAIN is configured. Kept as a safety net for local and dev
	// environments; stored keys resolve against it.
	DefaultBaseDomain = "https://img.photo-ingest.local"

	// DefaultFolder is the sentinel folder for uploads that carry none.
	DefaultFolder = "uploads"
)

// Config holds all application configuration
type Config struct {
	Port        string
	MetricsPort string

	DatabaseDir  string
	DatabasePath string

	// Object store
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKeyID  string
	S3AccessSecret string
	S3DisableHTTPS bool

	// Public URL resolution
	BaseDomain      string
	OriginalPrefix  string
	ThumbnailPrefix string
	DefaultFolder   string

	// Derivative policy
	MaxOriginalDim   int
	ThumbnailProfile ThumbnailProfile
	JPEGQuality      int

	// Client-side preprocessing policy
	PreuploadMaxDim    int
	CompressFloorBytes int64
	WatermarkPath      string
	WatermarkRatio     float64
	WatermarkMarginPx  int

	// Codec backend: "std" (pure Go) or "vips" (libvips)
	CodecBackend string

	LogHealthChecks bool
	MetricsEnabled  bool
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is honored when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Info("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		DatabaseDir: getEnv("DATABASE_DIR", "/database"),

		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", "photo-ingest"),
		S3AccessKeyID:  getEnv("S3_ACCESS_KEY_ID", ""),
		S3AccessSecret: getEnv("S3_ACCESS_KEY_SECRET", ""),
		S3DisableHTTPS: getEnvBool("S3_DISABLE_HTTPS", false),

		BaseDomain:      getEnv("BASE_DOMAIN", DefaultBaseDomain),
		OriginalPrefix:  getEnv("ORIGINAL_PREFIX", "originals"),
		ThumbnailPrefix: getEnv("THUMBNAIL_PREFIX", "thumbnails"),
		DefaultFolder:   getEnv("DEFAULT_FOLDER", DefaultFolder),

		MaxOriginalDim:   getEnvInt("MAX_ORIGINAL_DIM", 1440),
		ThumbnailProfile: ThumbnailProfile(getEnv("THUMBNAIL_PROFILE", string(ProfileStandard))),
		JPEGQuality:      getEnvInt("JPEG_QUALITY", 85),

		PreuploadMaxDim:    getEnvInt("PREUPLOAD_MAX_DIM", 2160),
		CompressFloorBytes: int64(getEnvInt("COMPRESS_FLOOR_BYTES", 1<<20)),
		WatermarkPath:      getEnv("WATERMARK_PATH", ""),
		WatermarkRatio:     getEnvFloat("WATERMARK_RATIO", 0.20),
		WatermarkMarginPx:  getEnvInt("WATERMARK_MARGIN_PX", 30),

		CodecBackend: getEnv("CODEC_BACKEND", "std"),

		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
	}

	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_PORT:         %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  DATABASE_DIR:         %s", config.DatabaseDir)
	logging.Info("  S3_ENDPOINT:          %s", valueOrDefaultNote(config.S3Endpoint, "(AWS default)"))
	logging.Info("  S3_REGION:            %s", config.S3Region)
	logging.Info("  S3_BUCKET:            %s", config.S3Bucket)
	logging.Info("  BASE_DOMAIN:          %s", config.BaseDomain)
	logging.Info("  ORIGINAL_PREFIX:      %s", config.OriginalPrefix)
	logging.Info("  THUMBNAIL_PREFIX:     %s", config.ThumbnailPrefix)
	logging.Info("  MAX_ORIGINAL_DIM:     %d", config.MaxOriginalDim)
	logging.Info("  THUMBNAIL_PROFILE:    %s (%dpx)", config.ThumbnailProfile, config.ThumbnailProfile.Dim())
	logging.Info("  JPEG_QUALITY:         %d", config.JPEGQuality)
	logging.Info("  PREUPLOAD_MAX_DIM:    %d", config.PreuploadMaxDim)
	logging.Info("  COMPRESS_FLOOR_BYTES: %d", config.CompressFloorBytes)
	logging.Info("  WATERMARK_PATH:       %s", valueOrDefaultNote(config.WatermarkPath, "(disabled)"))
	logging.Info("  CODEC_BACKEND:        %s", config.CodecBackend)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())

	if err := config.validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "assets.db")
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	return config, nil
}

func (c *Config) validate() error {
	if c.MaxOriginalDim < 1 {
		return fmt.Errorf("MAX_ORIGINAL_DIM must be positive, got %d", c.MaxOriginalDim)
	}
	if c.PreuploadMaxDim < 1 {
		return fmt.Errorf("PREUPLOAD_MAX_DIM must be positive, got %d", c.PreuploadMaxDim)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be in 1..100, got %d", c.JPEGQuality)
	}
	if c.WatermarkRatio <= 0 || c.WatermarkRatio > 1 {
		return fmt.Errorf("WATERMARK_RATIO must be in (0,1], got %g", c.WatermarkRatio)
	}
	switch c.ThumbnailProfile {
	case ProfileStandard, ProfileCompact:
	default:
		return fmt.Errorf("THUMBNAIL_PROFILE must be %q or %q, got %q",
			ProfileStandard, ProfileCompact, c.ThumbnailProfile)
	}
	if c.ThumbnailProfile.Dim() > c.MaxOriginalDim {
		return fmt.Errorf("thumbnail bound %d exceeds MAX_ORIGINAL_DIM %d",
			c.ThumbnailProfile.Dim(), c.MaxOriginalDim)
	}
	switch c.CodecBackend {
	case "std", "vips":
	default:
		return fmt.Errorf("CODEC_BACKEND must be \"std\" or \"vips\", got %q", c.CodecBackend)
	}
	if c.OriginalPrefix == "" || c.ThumbnailPrefix == "" {
		return fmt.Errorf("ORIGINAL_PREFIX and THUMBNAIL_PREFIX must be non-empty")
	}
	if c.OriginalPrefix == c.ThumbnailPrefix {
		return fmt.Errorf("ORIGINAL_PREFIX and THUMBNAIL_PREFIX must differ, both are %q", c.OriginalPrefix)
	}
	return nil
}

func valueOrDefaultNote(v, note string) string {
	if v == "" {
		return note
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		logging.Warn("  Invalid boolean for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("  Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("  Invalid number for %s: %q, using default %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Info("  Creating %s directory: %s", name, path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s directory: %w", name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path %s exists but is not a directory", name, path)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("  failed to remove write-test file %s: %v", testFile, err)
	}
	return nil
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})
		for _, route := range routes {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogStorageInit logs object store initialization
func LogStorageInit(bucket, endpoint string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("OBJECT STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Bucket: %s", bucket)
	if endpoint != "" {
		logging.Info("  Endpoint: %s", endpoint)
	} else {
		logging.Info("  Endpoint: AWS default")
	}
}

// LogShutdownInitiated logs the start of graceful shutdown
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (%s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step in progress
func LogShutdownStep(step string) {
	logging.Info("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs successful shutdown
func LogShutdownComplete() {
	logging.Info("  Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	logging.Info("============================================================")
	logging.Info("  photo-ingest %s (%s)", Version, Commit)
	logging.Info("============================================================")
}

func logSystemInfo() {
	logging.Info("  Go:        %s", GoVersion)
	logging.Info("  Platform:  %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs:      %d (GOMAXPROCS=%d)", runtime.NumCPU(), runtime.GOMAXPROCS(0))
	logging.Info("")
}
