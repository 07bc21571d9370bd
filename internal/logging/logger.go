package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Options controls how component loggers are built.
type Options struct {
	Level        string
	Format       string // "text" (default), "json" or "simple"
	ReportCaller bool
	Output       io.Writer
}

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	options   = Options{Level: "info", Format: "text"}
)

// Configure replaces the options used by NewLogger and reconfigures the
// loggers that already exist.
func Configure(opts Options) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	options = opts
	for _, entry := range loggers {
		apply(entry.Logger, opts)
	}
}

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	apply(logger, options)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

func apply(logger *logrus.Logger, opts Options) {
	levelStr := "info"
	if env := os.Getenv("DECKARD_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if opts.Level != "" {
		levelStr = opts.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("DECKARD_LOG_CALLER") == "true" || opts.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch opts.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{DisableTimestamp: true, DisableComponent: true})
	default:
		logger.SetFormatter(&TextFormatter{})
	}

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}
}
