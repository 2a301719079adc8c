package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger. format is "json" (default) or
// "text"; level is any logrus level name.
func Setup(level, format string) error {
	return SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit output.
func SetupWriter(out io.Writer, level, format string) error {
	lvl := log.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := log.ParseLevel(strings.TrimSpace(level))
		if err != nil {
			return fmt.Errorf("invalid log level %q", level)
		}
		lvl = parsed
	}

	var formatter log.Formatter
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	case "text":
		formatter = &log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	log.SetFormatter(formatter)
	log.SetLevel(lvl)
	log.SetOutput(out)
	return nil
}
