package services

import (
	"context"
	"log"
	"time"
)

const (
	mirrorQueueDepth  = 64
	mirrorSettleDelay = 100 * time.Millisecond
	mirrorAttempts    = 3
	mirrorTimeout     = 15 * time.Second
)

// MirrorQueue decouples mirroring from the order-creation request path:
// an in-process channel with one worker, a short settle delay so the
// creating transaction is visible before the first attempt, and a bounded
// number of retries.
type MirrorQueue struct {
	mirror *MirrorService
	ch     chan uint
}

func NewMirrorQueue(mirror *MirrorService) *MirrorQueue {
	return &MirrorQueue{
		mirror: mirror,
		ch:     make(chan uint, mirrorQueueDepth),
	}
}

// Enqueue schedules an order for mirroring. Never blocks: if the queue is
// full the order is dropped with a log line and can be re-pushed through
// the manual sync endpoint.
func (q *MirrorQueue) Enqueue(orderID uint) {
	select {
	case q.ch <- orderID:
	default:
		log.Printf("mirror queue full, dropping order %d (use /sync/order/%d to retry)", orderID, orderID)
	}
}

// Start runs the worker until ctx is cancelled.
func (q *MirrorQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case orderID := <-q.ch:
				q.process(ctx, orderID)
			}
		}
	}()
}

func (q *MirrorQueue) process(ctx context.Context, orderID uint) {
	time.Sleep(mirrorSettleDelay)

	for attempt := 1; attempt <= mirrorAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		posOrderID, err := q.mirror.Mirror(attemptCtx, orderID)
		cancel()

		if err == nil {
			log.Printf("mirror: order %d projected as %s", orderID, posOrderID)
			return
		}
		log.Printf("mirror: order %d attempt %d/%d failed: %v", orderID, attempt, mirrorAttempts, err)

		if attempt < mirrorAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
}
