//go:build unix

package main

import (
	"os"
	"syscall"

	"github.com/jvetere1999/passion-os-sub013/internal/refresh"
)

var signalEvents = map[os.Signal]refresh.EventKind{
	syscall.SIGUSR1: refresh.EventFocus,
	syscall.SIGUSR2: refresh.EventHidden,
	syscall.SIGCONT: refresh.EventVisible,
}

func lifecycleSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGCONT}
}

func lifecycleEvent(sig os.Signal) (refresh.EventKind, bool) {
	kind, ok := signalEvents[sig]
	return kind, ok
}
