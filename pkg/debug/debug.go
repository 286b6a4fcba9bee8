// Package debug configures the process logger and provides category-based
// debug logging for ecotrade.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): controlled via ECOTRADE_DEBUG env or logging.debug
//   - Levels (HOW MUCH detail): controlled via logging.level
//
// Usage:
//
//	debug.Log("identity", "insert lost race", "email", email)
//	if debug.Enabled("storage") { /* expensive formatting */ }
//
// Categories: auth, identity, products, storage, transport, config, all.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// categories holds the set of enabled debug categories.
// Access is read-only after Init(), so no synchronization needed.
var categories map[string]bool

func init() {
	// Initialize from environment for immediate availability.
	// Can be re-initialized later via Init() with config values.
	categories = parseCategories(os.Getenv("ECOTRADE_DEBUG"))
}

// Options selects the process logger.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // json or text
	Categories string // comma-separated debug categories
}

// Init builds the process logger, installs it as the slog default, and
// returns it. ECOTRADE_DEBUG overrides opts.Categories.
//
// An enabled category lowers the level to debug, otherwise its output
// would be filtered.
func Init(w io.Writer, opts Options) *slog.Logger {
	cats := os.Getenv("ECOTRADE_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := ParseLevel(opts.Level)
	if len(categories) > 0 {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category through the default
// logger. If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the list of enabled categories.
func Categories() []string {
	var result []string
	for k := range categories {
		result = append(result, k)
	}
	return result
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
