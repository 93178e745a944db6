package spider

import (
	"container/heap"
	"context"
	"sync"

	"github.com/ternarybob/aranea/internal/models"
)

// queueItem is one in-memory frontier entry. seq is an insertion
// counter so equal priorities dequeue in FIFO order.
type queueItem struct {
	url      string
	priority int
	seq      uint64
}

// itemHeap orders entries by (priority asc, seq asc)
type itemHeap []queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(queueItem)) }

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// priorityQueue is the bounded blocking heap the workers drain. Lower
// priority dequeues first; Close wakes every blocked Pop.
type priorityQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    itemHeap
	maxSize  int
	nextSeq  uint64
	closed   bool
}

func newPriorityQueue(maxSize int) *priorityQueue {
	q := &priorityQueue{
		items:   itemHeap{},
		maxSize: maxSize,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// TryPush adds a URL without blocking. Returns models.ErrQueueFull at
// capacity and ErrQueueClosed after Close.
func (q *priorityQueue) TryPush(url string, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(q.items) >= q.maxSize {
		return models.ErrQueueFull
	}

	heap.Push(&q.items, queueItem{url: url, priority: priority, seq: q.nextSeq})
	q.nextSeq++
	q.notEmpty.Signal()
	return nil
}

// Pop blocks until an item is available, the queue closes, or the
// context is cancelled. Close takes precedence over remaining items so
// workers stop promptly; undrained items survive in the url_queue table.
func (q *priorityQueue) Pop(ctx context.Context) (queueItem, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return queueItem{}, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return queueItem{}, err
		}
		if len(q.items) > 0 {
			return heap.Pop(&q.items).(queueItem), nil
		}
		q.notEmpty.Wait()
	}
}

// Len returns the number of queued items
func (q *priorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close permanently shuts the queue and wakes all blocked pops
func (q *priorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}
