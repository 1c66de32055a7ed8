// Package input watches a line-oriented command stream (stdin in production)
// for control-surface triggers.
package input

import (
	"bufio"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Watch reads one trigger per line, looks it up in buttons and forwards the
// mapped method name to the status loop. Unmatched lines are dropped. The
// function returns when the stream closes; a closed stdin only means no one
// will ever ask for the control surface, so that is not an error.
func Watch(r io.Reader, buttons map[string]string, requests chan<- string, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		trigger := strings.ToLower(strings.TrimSpace(scanner.Text()))
		method, ok := buttons[trigger]
		if !ok {
			continue
		}
		select {
		case requests <- method:
			logger.Debug("view trigger", zap.String("trigger", trigger), zap.String("method", method))
		default:
			// a request is already pending
		}
	}
	logger.Debug("command stream closed", zap.Error(scanner.Err()))
}
