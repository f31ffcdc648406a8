package crashlog

import (
	"sync"
	"testing"

	"github.com/nexus-app/nexus/internal/logging"
)

func TestRecoverStopsPanic(t *testing.T) {
	logging.Disable()
	defer logging.Enable()

	func() {
		defer Recover("test", map[string]string{"k": "v"})
		panic("boom")
	}()
}

func TestGoRecovers(t *testing.T) {
	logging.Disable()
	defer logging.Enable()

	var wg sync.WaitGroup
	wg.Add(1)
	Go("test", nil, func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()
}

func TestFormatContext(t *testing.T) {
	if got := formatContext(nil); got != "" {
		t.Errorf("empty context = %q", got)
	}
	got := formatContext(map[string]string{"b": "2", "a": "1"})
	if got != " [a=1 b=2]" {
		t.Errorf("formatContext = %q", got)
	}
}
