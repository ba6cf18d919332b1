package tool

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var DefaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "2006-01-02 15:04:05",
	Prefix:          "castanet",
})

// InitLogger tees log output to a dated file under dir. An empty dir keeps stderr only.
func InitLogger(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	logFile := filepath.Join(dir, time.Now().Format("2006-01-02.log"))
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	DefaultLogger.SetOutput(io.MultiWriter(os.Stderr, f))
	DefaultLogger.SetReportCaller(true)
	return nil
}

// SetLogMode maps dev|prod|none onto logger levels.
func SetLogMode(mode string) {
	switch strings.ToLower(mode) {
	case "", "prod":
		DefaultLogger.SetLevel(log.InfoLevel)
	case "dev":
		DefaultLogger.SetLevel(log.DebugLevel)
	case "none":
		DefaultLogger.SetLevel(log.FatalLevel)
	default:
		DefaultLogger.Warnf("Unknown log mode %q, using info level", mode)
		DefaultLogger.SetLevel(log.InfoLevel)
	}
}
