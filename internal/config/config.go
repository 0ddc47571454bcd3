package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Library      LibraryConfig      `yaml:"media_library" toml:"media_library"`
	Organization OrganizationConfig `yaml:"organization" toml:"organization"`
	Duplicates   DuplicatesConfig   `yaml:"duplicate_detection" toml:"duplicate_detection"`
	Advanced     AdvancedConfig     `yaml:"advanced" toml:"advanced"`
	Cache        CacheConfig        `yaml:"cache" toml:"cache"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
	Watch        WatchConfig        `yaml:"watch" toml:"watch"`
}

// LibraryConfig holds the per-category source roots
type LibraryConfig struct {
	MoviePaths  []string `yaml:"movie_paths" toml:"movie_paths"`
	TVShowPaths []string `yaml:"tv_show_paths" toml:"tv_show_paths"`
	MusicPaths  []string `yaml:"music_paths" toml:"music_paths"`
	PhotoPaths  []string `yaml:"photo_paths" toml:"photo_paths"`
}

// OrganizationConfig holds destination layout settings
type OrganizationConfig struct {
	OutputDirectory string `yaml:"output_directory" toml:"output_directory"`
	NamingPattern   string `yaml:"naming_pattern" toml:"naming_pattern"`
	Overwrite       bool   `yaml:"overwrite" toml:"overwrite"`
	DryRun          bool   `yaml:"dry_run" toml:"dry_run"`
}

// DuplicatesConfig holds duplicate detection settings
type DuplicatesConfig struct {
	KeepCriteria string `yaml:"keep_criteria" toml:"keep_criteria"`
}

// AdvancedConfig holds hashing and filtering knobs
type AdvancedConfig struct {
	HashAlgorithm     string   `yaml:"hash_algorithm" toml:"hash_algorithm"`
	ChunkSize         int      `yaml:"chunk_size" toml:"chunk_size"`
	MaxWorkers        int      `yaml:"max_workers" toml:"max_workers"`
	IgnorePatterns    []string `yaml:"ignore_patterns" toml:"ignore_patterns"`
	VideoExtensions   []string `yaml:"video_extensions" toml:"video_extensions"`
	AudioExtensions   []string `yaml:"audio_extensions" toml:"audio_extensions"`
	PhotoExtensions   []string `yaml:"photo_extensions" toml:"photo_extensions"`
	SidecarExtensions []string `yaml:"sidecar_extensions" toml:"sidecar_extensions"`
}

// CacheConfig holds the digest cache location. An empty path disables it.
type CacheConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// WatchConfig holds watch mode settings
type WatchConfig struct {
	DebounceSeconds int `yaml:"debounce_seconds" toml:"debounce_seconds"`
	IntervalMinutes int `yaml:"interval_minutes" toml:"interval_minutes"`
}

// Naming patterns
const (
	NamingSpaced = "spaced"
	NamingDotted = "dotted"
)

// Keep criteria
const (
	KeepHighestQuality = "highest_quality"
	KeepLargest        = "largest"
	KeepSmallest       = "smallest"
	KeepOldest         = "oldest"
	KeepNewest         = "newest"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	// Read the config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the content
	expanded := []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(expanded)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path-valued setting.
func (c *Config) expandPaths() error {
	lists := []*[]string{&c.Library.MoviePaths, &c.Library.TVShowPaths, &c.Library.MusicPaths, &c.Library.PhotoPaths}
	for _, list := range lists {
		for i, p := range *list {
			expanded, err := expandHome(p)
			if err != nil {
				return err
			}
			(*list)[i] = expanded
		}
	}
	for _, p := range []*string{&c.Organization.OutputDirectory, &c.Cache.Path} {
		expanded, err := expandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Organization.OutputDirectory == "" {
		c.Organization.OutputDirectory = "organized_media"
	}
	if c.Organization.NamingPattern == "" {
		c.Organization.NamingPattern = NamingSpaced
	}
	if c.Duplicates.KeepCriteria == "" {
		c.Duplicates.KeepCriteria = KeepHighestQuality
	}
	if c.Advanced.HashAlgorithm == "" {
		c.Advanced.HashAlgorithm = "sha256"
	}
	if c.Advanced.ChunkSize <= 0 {
		c.Advanced.ChunkSize = 64 * 1024
	}
	if c.Advanced.MaxWorkers <= 0 {
		c.Advanced.MaxWorkers = runtime.NumCPU()
	}
	if len(c.Advanced.VideoExtensions) == 0 {
		c.Advanced.VideoExtensions = []string{".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".mpg", ".mpeg", ".ts", ".webm", ".flv"}
	}
	if len(c.Advanced.AudioExtensions) == 0 {
		c.Advanced.AudioExtensions = []string{".mp3", ".flac", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".wma", ".alac"}
	}
	if len(c.Advanced.PhotoExtensions) == 0 {
		c.Advanced.PhotoExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".webp", ".tiff", ".bmp", ".raw", ".cr2", ".nef"}
	}
	if len(c.Advanced.SidecarExtensions) == 0 {
		c.Advanced.SidecarExtensions = []string{".srt", ".sub", ".idx", ".vtt", ".ass", ".ssa", ".nfo", ".lrc"}
	}
	c.Advanced.VideoExtensions = normalizeExtensions(c.Advanced.VideoExtensions)
	c.Advanced.AudioExtensions = normalizeExtensions(c.Advanced.AudioExtensions)
	c.Advanced.PhotoExtensions = normalizeExtensions(c.Advanced.PhotoExtensions)
	c.Advanced.SidecarExtensions = normalizeExtensions(c.Advanced.SidecarExtensions)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	if c.Watch.DebounceSeconds <= 0 {
		c.Watch.DebounceSeconds = 5
	}
}

// Validate reports configuration errors. They are fatal for every command.
func (c *Config) Validate() error {
	switch c.Organization.NamingPattern {
	case NamingSpaced, NamingDotted:
	default:
		return fmt.Errorf("naming_pattern must be %q or %q, got %q", NamingSpaced, NamingDotted, c.Organization.NamingPattern)
	}

	switch c.Duplicates.KeepCriteria {
	case KeepHighestQuality, KeepLargest, KeepSmallest, KeepOldest, KeepNewest:
	default:
		return fmt.Errorf("unknown keep_criteria %q", c.Duplicates.KeepCriteria)
	}

	switch strings.ToLower(c.Advanced.HashAlgorithm) {
	case "sha256", "sha1", "md5":
	default:
		return fmt.Errorf("unsupported hash_algorithm %q", c.Advanced.HashAlgorithm)
	}

	for _, pattern := range c.Advanced.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}

	if c.Watch.IntervalMinutes < 0 {
		return fmt.Errorf("watch.interval_minutes must not be negative")
	}
	return nil
}

// Roots returns every configured library root, de-duplicated, in
// movie, tv, music, photo order.
func (c *Config) Roots() []string {
	seen := make(map[string]bool)
	var roots []string
	groups := [][]string{c.Library.MoviePaths, c.Library.TVShowPaths, c.Library.MusicPaths, c.Library.PhotoPaths}
	for _, group := range groups {
		for _, p := range group {
			p = filepath.Clean(p)
			if p == "." || seen[p] {
				continue
			}
			seen[p] = true
			roots = append(roots, p)
		}
	}
	return roots
}

// MediaExtensions returns the union of the video, audio and photo allow-lists.
func (c *Config) MediaExtensions() []string {
	all := make([]string, 0, len(c.Advanced.VideoExtensions)+len(c.Advanced.AudioExtensions)+len(c.Advanced.PhotoExtensions))
	all = append(all, c.Advanced.VideoExtensions...)
	all = append(all, c.Advanced.AudioExtensions...)
	all = append(all, c.Advanced.PhotoExtensions...)
	return all
}

func expandHome(path string) (string, error) {
	// Expand ~ to home directory if present
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
