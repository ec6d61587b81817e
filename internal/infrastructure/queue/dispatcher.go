package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/signatech/account-service/internal/api/metrics"
	"github.com/signatech/account-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 30 * time.Second
)

// Dispatcher delivers non-critical notifications on a fixed set of workers.
// Notices are sharded by recipient so one inbox receives them in order.
type Dispatcher struct {
	workers []chan ports.Notification
	mailer  ports.Mailer
	log     zerolog.Logger
}

var _ ports.NotificationQueue = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Notification, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue never blocks the caller; a full shard drops the notice.
func (d *Dispatcher) Enqueue(n ports.Notification) {
	idx := d.shardIndex(n.Email)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		d.log.Warn().Str("kind", string(n.Kind)).Int("worker_id", idx).Msg("notification queue full, dropping")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Notification) {
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			if err := d.deliver(ctx, n); err != nil {
				metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
				d.log.Error().Err(err).
					Str("kind", string(n.Kind)).
					Int("worker_id", id).
					Msg("notification delivery failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n ports.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	switch n.Kind {
	case ports.NotifyWelcome:
		return d.mailer.SendWelcome(ctx, n.Email, n.Name)
	case ports.NotifyPasswordChanged:
		return d.mailer.SendPasswordChanged(ctx, n.Email, n.Name)
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}
