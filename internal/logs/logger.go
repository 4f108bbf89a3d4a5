// Package logs builds the process logger: a text or JSON handler on the
// terminal, fanned out to the systemd journal when running as a service
// unit.
package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Format selects the terminal handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown log format %q (want text or json)", s)
}

// Options configures New.
type Options struct {
	// Writer receives terminal output. Defaults to os.Stderr.
	Writer io.Writer

	// Level is the minimum level; a *slog.LevelVar allows changing it later.
	Level slog.Leveler

	Format Format

	// Journal forces the journal handler on or off. Nil means detect: on
	// when the process runs inside a systemd .service cgroup.
	Journal *bool
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var terminal slog.Handler
	if opts.Format == FormatJSON {
		terminal = slog.NewJSONHandler(opts.Writer, handlerOpts)
	} else {
		terminal = slog.NewTextHandler(opts.Writer, handlerOpts)
	}
	handlers := []slog.Handler{terminal}

	journal := isSystemdService()
	if opts.Journal != nil {
		journal = *opts.Journal
	}
	if journal {
		h, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
			record.Add("error", err)
			_ = terminal.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, h)
		}
	}

	if len(handlers) == 1 {
		return slog.New(terminal)
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// toJournalKey maps an attribute key to a journal field name: upper case
// letters, digits and underscores only.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func isSystemdService() bool {
	cgroupPath, err := getCgroupPath()
	if err != nil {
		return false
	}
	return strings.HasSuffix(path.Dir(cgroupPath), ".service")
}

func getCgroupPath() (string, error) {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) >= 3 {
		return parts[2], nil
	}
	return "", nil
}
