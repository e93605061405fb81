package infra

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// StreamSource reads newline-delimited JSON RawEvents, e.g. from a bridge
// process piping accessibility events into stdin.
type StreamSource struct {
	r      io.Reader
	logger *zap.Logger
}

// NewStreamSource creates a source reading from r.
func NewStreamSource(r io.Reader, logger *zap.Logger) *StreamSource {
	return &StreamSource{r: r, logger: logger}
}

// Name identifies the source in logs.
func (s *StreamSource) Name() string {
	return "stream"
}

// Run emits one event per line until EOF or ctx is canceled. Malformed
// lines are skipped.
func (s *StreamSource) Run(ctx context.Context, emit func(domain.RawEvent)) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			s.handle(line, emit)
		}
	}
}

func (s *StreamSource) handle(line string, emit func(domain.RawEvent)) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var ev domain.RawEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		s.logger.Debug("skipping malformed event", zap.Error(err))
		return
	}
	emit(ev)
}

// Ensure StreamSource implements domain.EventSource.
var _ domain.EventSource = (*StreamSource)(nil)
