package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler dials addr over UDP and returns a JSON handler whose
// records are shipped as GELF messages. Close the writer on shutdown.
func NewGraylogHandler(addr, level string) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("graylog writer: %w", err)
	}
	return slog.NewJSONHandler(w, handlerOptions(level)), w, nil
}
