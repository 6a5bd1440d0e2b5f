// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/rfid-ingest/core/internal/model"
)

// queue is a bounded many-producer, one-consumer buffer backed by a
// buffered channel: many LLRP adapters enqueue, the pipeline's single main
// loop dequeues. Enqueue never blocks (spec §4.3, §5).
type queue struct {
	ch chan model.Read
}

func newQueue(capacity int) *queue {
	return &queue{ch: make(chan model.Read, capacity)}
}

// tryEnqueue attempts a non-blocking send, reporting whether it succeeded.
func (q *queue) tryEnqueue(r model.Read) bool {
	select {
	case q.ch <- r:
		return true
	default:
		return false
	}
}

// gatherBatch drains up to maxSize reads, waiting up to timeout for the
// first read if the queue is currently empty, then returning whatever has
// accumulated once either bound is hit.
func (q *queue) gatherBatch(maxSize int, timeout time.Duration) []model.Read {
	batch := make([]model.Read, 0, maxSize)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-q.ch:
		batch = append(batch, r)
	case <-timer.C:
		return batch
	}

	for len(batch) < maxSize {
		select {
		case r := <-q.ch:
			batch = append(batch, r)
		default:
			return batch
		}
	}
	return batch
}

// gatherAvailable drains up to maxSize reads already buffered in the
// queue without waiting on either channel operation racing a timer: used
// by the shutdown drain, where an empty result must mean "queue observed
// empty" rather than "lost a pseudo-random select against a zero-delay
// timer" (gatherBatch's timer arm is not safe for that distinction).
func (q *queue) gatherAvailable(maxSize int) []model.Read {
	batch := make([]model.Read, 0, maxSize)
	for len(batch) < maxSize {
		select {
		case r := <-q.ch:
			batch = append(batch, r)
		default:
			return batch
		}
	}
	return batch
}

func (q *queue) len() int {
	return len(q.ch)
}

func (q *queue) cap() int {
	return cap(q.ch)
}
