package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// NewZerolog builds the console logger used by the database and influx
// managers. A nil file logs to stdout only.
func NewZerolog(file io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: osStdout, TimeFormat: "2006-01-02T15:04:05Z07:00"}
	if file != nil {
		out = zerolog.MultiLevelWriter(
			out,
			zerolog.ConsoleWriter{Out: file, TimeFormat: "2006-01-02T15:04:05Z07:00", NoColor: true},
		)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
