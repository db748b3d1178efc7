package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/homefinder/listing-service/internal/api/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	removeTimeout  = 5 * time.Second
)

// Remover deletes stored media files by name.
type Remover interface {
	Discard(ctx context.Context, names []string) error
}

// Janitor removes media files of deleted listings in the background. Files
// are sharded over a fixed set of workers by name.
type Janitor struct {
	workers []chan string
	remover Remover
	log     zerolog.Logger
}

// NewJanitor creates a Janitor with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewJanitor(numWorkers int, remover Remover, log zerolog.Logger) *Janitor {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	j := &Janitor{
		workers: make([]chan string, numWorkers),
		remover: remover,
		log:     log,
	}
	for i := range j.workers {
		j.workers[i] = make(chan string, channelBuffer)
	}
	return j
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	for i, ch := range j.workers {
		go j.runWorker(ctx, i, ch)
	}
}

// Enqueue schedules name for removal. It never blocks: when the worker's
// buffer is full the file is left on disk and the drop is logged.
func (j *Janitor) Enqueue(name string) {
	idx := j.shardIndex(name)
	select {
	case j.workers[idx] <- name:
		metrics.JanitorQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.MediaPurgedTotal.WithLabelValues("dropped").Inc()
		j.log.Warn().Str("image", name).Int("worker_id", idx).Msg("janitor queue full, image left on disk")
	}
}

// EnqueueBatch schedules every name for removal.
func (j *Janitor) EnqueueBatch(names []string) {
	for _, n := range names {
		j.Enqueue(n)
	}
}

func (j *Janitor) shardIndex(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % uint32(len(j.workers)))
}

func (j *Janitor) runWorker(ctx context.Context, id int, ch <-chan string) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case name, ok := <-ch:
			if !ok {
				return
			}
			metrics.JanitorQueueDepth.WithLabelValues(label).Dec()
			j.remove(ctx, id, name)
		}
	}
}

func (j *Janitor) remove(ctx context.Context, id int, name string) {
	rctx, cancel := context.WithTimeout(ctx, removeTimeout)
	defer cancel()

	if err := j.remover.Discard(rctx, []string{name}); err != nil {
		metrics.MediaPurgedTotal.WithLabelValues("error").Inc()
		j.log.Error().Err(err).Str("image", name).Int("worker_id", id).Msg("image purge failed")
		return
	}
	metrics.MediaPurgedTotal.WithLabelValues("removed").Inc()
	j.log.Debug().Str("image", name).Int("worker_id", id).Msg("image purged")
}
