// Package crashlog recovers and records panics in background goroutines.
package crashlog

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/nexus-app/nexus/internal/logging"
)

// LogPanic records a recovered panic with a stack trace.
func LogPanic(module string, r any, ctx map[string]string) {
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	logging.Errorf("[PANIC] %s: %v%s\n%s", module, r, formatContext(ctx), stack[:n])
}

// Recover must be deferred directly. It stops a panic from taking the
// process down and logs it instead.
//
//	go func() {
//		defer crashlog.Recover("stream", nil)
//		...
//	}()
func Recover(module string, ctx map[string]string) {
	if r := recover(); r != nil {
		LogPanic(module, r, ctx)
	}
}

// Go runs fn in a goroutine guarded by Recover.
func Go(module string, ctx map[string]string, fn func()) {
	go func() {
		defer Recover(module, ctx)
		fn()
	}()
}

func formatContext(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(" [")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%s", k, ctx[k])
	}
	b.WriteByte(']')
	return b.String()
}
