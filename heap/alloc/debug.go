package alloc

import (
	"io"
	"log/slog"
	"os"
)

// Runtime debug flag for allocation tracing - controlled by KCORE_LOG_ALLOC env var.
var logAlloc = os.Getenv("KCORE_LOG_ALLOC") != ""

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// SetLogger sets the logger used for allocation tracing and warnings.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func traceAlloc(kind string, addr uintptr, size, align uintptr, err error) {
	if !logAlloc {
		return
	}
	logger.Debug("alloc", "allocator", kind, "addr", addr, "size", size, "align", align, "error", err)
}

func traceFree(kind string, addr uintptr, size, align uintptr) {
	if !logAlloc {
		return
	}
	logger.Debug("dealloc", "allocator", kind, "addr", addr, "size", size, "align", align)
}
