// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtimeEnv bundles small process-lifecycle helpers that don't
// belong to any one subsystem: systemd readiness notification and a
// bounded-wait helper used to enforce shutdown deadlines.
package runtimeEnv

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// SystemdNotify informs systemd of a readiness/status change via
// sd_notify(3), a no-op outside of a systemd unit (NOTIFY_SOCKET unset).
// https://www.freedesktop.org/software/systemd/man/sd_notify.html
func SystemdNotify(ready bool, status string) {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}

	args := []string{fmt.Sprintf("--pid=%d", os.Getpid())}
	if ready {
		args = append(args, "--ready")
	}
	if status != "" {
		args = append(args, fmt.Sprintf("--status=%s", status))
	}

	// Best-effort: a missing systemd-notify binary must not block shutdown.
	_ = exec.Command("systemd-notify", args...).Run()
}

// WaitWithDeadline blocks until wg is done or deadline elapses, whichever
// comes first. It reports whether wg finished in time. Used by the
// pipeline to bound the queue-drain step of a graceful shutdown (§5: the
// pipeline drains under a shutdown deadline, default 5s, then exits
// regardless of remaining backlog).
func WaitWithDeadline(wg *sync.WaitGroup, deadline time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(deadline):
		return false
	}
}
