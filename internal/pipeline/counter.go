// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import "sync/atomic"

// atomicCounter is a minimal int64 counter safe for concurrent use by
// many adapter goroutines and the single main loop.
type atomicCounter struct {
	v int64
}

func (c *atomicCounter) Inc()           { atomic.AddInt64(&c.v, 1) }
func (c *atomicCounter) Add(n int64)    { atomic.AddInt64(&c.v, n) }
func (c *atomicCounter) Load() int64    { return atomic.LoadInt64(&c.v) }
