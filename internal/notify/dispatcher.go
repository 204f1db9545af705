package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/interfaces"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/monitoring"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// DeliveredFunc is invoked after a message tied to a grant is delivered,
// so the grant's notification timestamp reflects actual delivery
type DeliveredFunc func(ctx context.Context, grantID string, at time.Time)

// Dispatcher drains a bounded queue through the mailer on a worker
// goroutine, decoupling delivery from request handling. Delivery is
// best-effort; the queue is drained on Close rather than dropped.
type Dispatcher struct {
	queue       chan *types.EmailMessage
	mailer      interfaces.Mailer
	logger      *logger.Logger
	onDelivered DeliveredFunc

	closeOnce sync.Once
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// NewDispatcher creates a dispatcher and starts its delivery worker
func NewDispatcher(mailer interfaces.Mailer, log *logger.Logger, queueSize int, onDelivered DeliveredFunc) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &Dispatcher{
		queue:       make(chan *types.EmailMessage, queueSize),
		mailer:      mailer,
		logger:      log,
		onDelivered: onDelivered,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Enqueue accepts a message for asynchronous delivery. It reports false
// when the queue is full or the dispatcher is closed; callers log and
// move on, since notification is never on the consistency-critical path.
func (d *Dispatcher) Enqueue(msg *types.EmailMessage) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.WithFields(map[string]interface{}{"to": msg.To}).Warn("Notification queue full, dropping message")
		monitoring.RecordNotification("email", "dropped")
		return false
	}
}

// Close stops accepting messages and blocks until queued messages have
// been attempted
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.queue)
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg *types.EmailMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.WithError(err).WithFields(map[string]interface{}{
			"to":       msg.To,
			"grant_id": msg.GrantID,
		}).Warn("Failed to deliver notification")
		monitoring.RecordNotification("email", "failed")
		return
	}

	monitoring.RecordNotification("email", "delivered")

	if msg.GrantID != "" && d.onDelivered != nil {
		d.onDelivered(ctx, msg.GrantID, time.Now())
	}
}
