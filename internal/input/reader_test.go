package input

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatchForwardsMatchedTriggers(t *testing.T) {
	buttons := map[string]string{"1": "PlayPause", "2": "Next"}
	requests := make(chan string, 4)

	// unmatched lines and surrounding whitespace are ignored
	Watch(strings.NewReader("x\n 1 \nnope\n2\n"), buttons, requests, zap.NewNop())

	close(requests)
	var got []string
	for method := range requests {
		got = append(got, method)
	}
	if len(got) != 2 || got[0] != "PlayPause" || got[1] != "Next" {
		t.Errorf("expected [PlayPause Next], got %v", got)
	}
}

func TestWatchDropsWhenRequestPending(t *testing.T) {
	buttons := map[string]string{"1": "PlayPause"}
	requests := make(chan string, 1)

	// three triggers against a full buffer of one; Watch must not block
	Watch(strings.NewReader("1\n1\n1\n"), buttons, requests, zap.NewNop())

	if got := len(requests); got != 1 {
		t.Errorf("expected exactly 1 pending request, got %d", got)
	}
}

func TestWatchReturnsOnStreamClose(t *testing.T) {
	done := make(chan struct{})
	go func() {
		Watch(strings.NewReader(""), map[string]string{}, make(chan string, 1), zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return on EOF")
	}
}
