// Package logger は設定から logrus のロガーを組み立てる。
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/0x6d61/secops-mcp/internal/config"
)

// timestampFormat はミリ秒精度・タイムゾーンなし
const timestampFormat = "2006-01-02 15:04:05.000"

// Options は設定ファイル以外から決まる出力制約。
type Options struct {
	// StdoutReserved は stdout がプロトコル通信に使われていることを示す。
	// true のとき output: stdout は stderr に振り替える。
	StdoutReserved bool
	// Stderr は標準エラーの差し替え（テスト用）。nil なら os.Stderr。
	Stderr io.Writer
}

// Logger は logrus.Logger と、ファイル出力時に閉じるべきライターの組。
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// Close はログファイルを閉じる。ファイル出力でなければ何もしない。
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New は cfg に従ってロガーを作る。
func New(cfg config.LogConfig, opts Options) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if err := setFormatter(log, cfg.Format); err != nil {
		return nil, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	l := &Logger{Logger: log}

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		log.SetOutput(stderr)
	case "stdout":
		if opts.StdoutReserved {
			log.SetOutput(stderr)
			log.Warn("log output stdout is reserved for the protocol, using stderr")
		} else {
			log.SetOutput(os.Stdout)
		}
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("logger: file_path is required when output is file")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		l.closer = rotator
		// debug のときはコンソールにも出す（stdout は使わない）
		if level >= logrus.DebugLevel {
			log.SetOutput(io.MultiWriter(stderr, rotator))
		} else {
			log.SetOutput(rotator)
		}
	default:
		return nil, fmt.Errorf("logger: unsupported output %q", cfg.Output)
	}

	if err != nil {
		log.Warnf("invalid log level %q, using info", cfg.Level)
	}
	return l, nil
}

func setFormatter(log *logrus.Logger, format string) error {
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
			DisableColors:   true,
		})
	default:
		return fmt.Errorf("logger: unsupported format %q", format)
	}
	return nil
}
