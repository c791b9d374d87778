package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"tracking/internal/core/ports"
	"tracking/internal/metrics"
)

// DefaultOutboxSize is the number of frames buffered per session.
const DefaultOutboxSize = 64

// Outbox decouples fan-out from a session's transport. Enqueue never blocks:
// when the queue is full the oldest frame is evicted. A single writer goroutine
// (Run) drains the queue into the transport. Frames are never retried.
type Outbox struct {
	transport ports.Transport
	queue     chan ports.Frame
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
	logger    *slog.Logger
}

// NewOutbox creates an outbox of the given capacity (DefaultOutboxSize when size <= 0).
func NewOutbox(transport ports.Transport, size int, logger *slog.Logger) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{
		transport: transport,
		queue:     make(chan ports.Frame, size),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Enqueue queues a frame, evicting the oldest one if full. Returns false once the
// outbox is closed, or when the frame itself had to be dropped.
func (o *Outbox) Enqueue(frame ports.Frame) bool {
	select {
	case <-o.done:
		return false
	default:
	}

	for attempt := 0; attempt < 2; attempt++ {
		select {
		case o.queue <- frame:
			return true
		default:
		}

		select {
		case <-o.queue:
			o.dropped.Add(1)
			metrics.FramesDroppedTotal.Inc()
		default:
		}
	}

	// Lost the race against other producers twice; drop the new frame instead.
	o.dropped.Add(1)
	metrics.FramesDroppedTotal.Inc()
	return false
}

// Dropped returns how many frames were evicted.
func (o *Outbox) Dropped() uint64 {
	return o.dropped.Load()
}

// Run writes queued frames to the transport until Close is called or ctx ends.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case frame := <-o.queue:
			if err := o.transport.Send(ctx, frame); err != nil {
				o.logger.DebugContext(ctx, "Frame not delivered", "frame", frame.FrameType(), "error", err)
			}
		}
	}
}

// Close stops the writer and closes the transport. Idempotent.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
		if err := o.transport.Close(); err != nil {
			o.logger.Debug("Transport close failed", "error", err)
		}
	})
}
