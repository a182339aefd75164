//go:build !unix

package main

import (
	"os"

	"github.com/jvetere1999/passion-os-sub013/internal/refresh"
)

// Only shutdown signals exist off unix; lifecycle events are not mapped.
func lifecycleSignals() []os.Signal { return nil }

func lifecycleEvent(os.Signal) (refresh.EventKind, bool) { return "", false }
