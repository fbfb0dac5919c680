package config

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/sink"
	"github.com/spf13/viper"
)

// Sink kinds.
const (
	SinkJSON      = sink.KindJSON
	SinkSQLite    = sink.KindSQLite
	SinkPathstore = sink.KindPathstore
)

type Config struct {
	Port string

	// Input
	DataDir              string
	Extensions           []string
	MarkdownMode         string
	Nested               bool
	PDFFallbackPdftotext bool

	// Chunking thresholds, in characters
	MinTokens    int
	TargetTokens int
	MaxTokens    int

	// Logging
	LogLevel  string
	LogFormat string

	// Auth for the HTTP API; empty disables it
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// Output
	Sink            string
	OutputPath      string
	SQLitePath      string
	PathstoreURL    string
	PathstoreAPIKey string
}

// SetDefaults registers every key with its default so environment variables
// and config files are picked up by Load.
func SetDefaults(v *viper.Viper) {
	def := chunker.DefaultConfig()

	v.SetDefault("PORT", "8090")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("EXTENSIONS", ".md")
	v.SetDefault("MARKDOWN_MODE", parser.ModeLine)
	v.SetDefault("NESTED", false)
	v.SetDefault("PDF_FALLBACK_PDFTOTEXT", true)
	v.SetDefault("MIN_TOKENS", def.Min)
	v.SetDefault("TARGET_TOKENS", def.Target)
	v.SetDefault("MAX_TOKENS", def.Max)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DOCSPLIT_API_KEY", "")
	v.SetDefault("MAX_UPLOAD_BYTES", int64(10<<20))
	v.SetDefault("SINK", SinkJSON)
	v.SetDefault("OUTPUT", "")
	v.SetDefault("SQLITE_PATH", "docsplit.db")
	v.SetDefault("PATHSTORE_URL", "http://localhost:8080")
	v.SetDefault("PATHSTORE_API_KEY", "")
}

// New returns a viper instance reading defaults and environment variables.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from v.
func Load(v *viper.Viper) Config {
	cfg := Config{
		Port: v.GetString("PORT"),

		DataDir:              v.GetString("DATA_DIR"),
		Extensions:           splitList(v.GetString("EXTENSIONS")),
		MarkdownMode:         strings.ToLower(v.GetString("MARKDOWN_MODE")),
		Nested:               v.GetBool("NESTED"),
		PDFFallbackPdftotext: v.GetBool("PDF_FALLBACK_PDFTOTEXT"),

		MinTokens:    v.GetInt("MIN_TOKENS"),
		TargetTokens: v.GetInt("TARGET_TOKENS"),
		MaxTokens:    v.GetInt("MAX_TOKENS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		APIKey: v.GetString("DOCSPLIT_API_KEY"),

		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		Sink:            strings.ToLower(v.GetString("SINK")),
		OutputPath:      v.GetString("OUTPUT"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		PathstoreURL:    v.GetString("PATHSTORE_URL"),
		PathstoreAPIKey: v.GetString("PATHSTORE_API_KEY"),
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".md"}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return cfg
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	if err := c.Chunk().Validate(); err != nil {
		return fmt.Errorf("MIN_TOKENS/TARGET_TOKENS/MAX_TOKENS: %w", err)
	}
	switch c.MarkdownMode {
	case parser.ModeLine, parser.ModeGoldmark:
	default:
		return fmt.Errorf("MARKDOWN_MODE must be %q or %q, got %q", parser.ModeLine, parser.ModeGoldmark, c.MarkdownMode)
	}
	switch c.Sink {
	case SinkJSON, SinkSQLite:
	case SinkPathstore:
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore sink")
		}
	default:
		return fmt.Errorf("unknown SINK %q", c.Sink)
	}
	return nil
}

// Chunk returns the chunk thresholds.
func (c Config) Chunk() chunker.Config {
	return chunker.Config{
		Min:    c.MinTokens,
		Target: c.TargetTokens,
		Max:    c.MaxTokens,
	}
}

// SinkOptions returns the options for sink.Open.
func (c Config) SinkOptions() sink.Options {
	return sink.Options{
		Kind:            c.Sink,
		Output:          c.OutputPath,
		SQLitePath:      c.SQLitePath,
		PathstoreURL:    c.PathstoreURL,
		PathstoreAPIKey: c.PathstoreAPIKey,
	}
}

// ParserOptions returns the options shared by all parsers.
func (c Config) ParserOptions() parser.Options {
	return parser.Options{
		Chunk:             c.Chunk(),
		MarkdownMode:      c.MarkdownMode,
		FallbackPdftotext: c.PDFFallbackPdftotext,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
