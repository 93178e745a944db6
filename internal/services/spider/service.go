package spider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// Service is the crawl scheduler: it owns the in-memory priority queue,
// the worker pool, and the admission pipeline in front of the durable
// url_queue table. The table is the source of truth; the queue only
// mirrors its pending rows.
type Service struct {
	scraper     interfaces.ScraperService
	queueStore  interfaces.QueueStorage
	jobStore    interfaces.JobStorage
	resultStore interfaces.ResultStorage
	filter      interfaces.FilterService
	priority    interfaces.PriorityService
	config      common.SpiderConfig
	logger      arbor.ILogger

	mu      sync.Mutex
	running bool
	queue   *priorityQueue
	workers *sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a stopped scheduler. filter and priority may be
// nil, which disables the corresponding admission layer.
func NewService(
	scraper interfaces.ScraperService,
	queueStore interfaces.QueueStorage,
	jobStore interfaces.JobStorage,
	resultStore interfaces.ResultStorage,
	filter interfaces.FilterService,
	priority interfaces.PriorityService,
	config common.SpiderConfig,
	logger arbor.ILogger,
) *Service {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		scraper:     scraper,
		queueStore:  queueStore,
		jobStore:    jobStore,
		resultStore: resultStore,
		filter:      filter,
		priority:    priority,
		config:      config,
		logger:      logger,
	}
}

// Start recovers the frontier and launches the worker pool. Rows left
// in processing by a previous run go back to pending before the queue
// is rebuilt, so no URL is lost to a crash.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("Spider already running")
		return nil
	}

	if _, err := s.queueStore.ResetProcessing(ctx); err != nil {
		return fmt.Errorf("failed to recover interrupted urls: %w", err)
	}

	queue := newPriorityQueue(s.config.MaxQueueSize)
	pending, err := s.queueStore.PendingURLs(ctx, s.config.MaxQueueSize)
	if err != nil {
		return fmt.Errorf("failed to load pending urls: %w", err)
	}
	for _, row := range pending {
		if err := queue.TryPush(row.URL, row.Priority); err != nil {
			break
		}
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	s.queue = queue
	s.workers = wg
	s.ctx = workerCtx
	s.cancel = cancel
	s.running = true

	for i := 0; i < s.config.MaxWorkers; i++ {
		wg.Add(1)
		go s.runWorker(workerCtx, queue, wg, i)
	}

	s.logger.Info().
		Int("workers", s.config.MaxWorkers).
		Int("max_queue_size", s.config.MaxQueueSize).
		Int("rebuilt", len(pending)).
		Msg("Spider started")
	return nil
}

// Stop shuts the queue, waits for workers to finish their in-flight
// URL, and cancels any stragglers after stopJoinTimeout. Undrained
// queue entries stay pending in the url_queue table.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	queue := s.queue
	wg := s.workers
	cancel := s.cancel
	s.mu.Unlock()

	queue.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		s.logger.Warn().Msg("Timed out waiting for workers to finish")
	}
	cancel()

	s.logger.Info().Msg("Spider stopped")
	return nil
}

// IsRunning reports whether the worker pool is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// EnqueueURL admits one URL through the filter, the priority policy,
// the durable frontier, and finally the in-memory queue. A priority of
// 0 defers to the policy when one is configured.
func (s *Service) EnqueueURL(ctx context.Context, url string, priority int) error {
	s.mu.Lock()
	running := s.running
	queue := s.queue
	s.mu.Unlock()

	if !running || queue == nil {
		s.logger.Warn().Str("url", url).Msg("Spider not running, cannot enqueue")
		return models.ErrNotRunning
	}

	if s.filter != nil {
		if excluded, reason := s.filter.Exclude(url, ""); excluded {
			s.logger.Debug().Str("url", url).Str("reason", reason).Msg("URL excluded by filter")
			return models.ErrFilterExcluded
		}
	}
	if s.priority != nil {
		score, excluded := s.priority.Score(url)
		if excluded {
			s.logger.Debug().Str("url", url).Msg("URL excluded by priority policy")
			return models.ErrFilterExcluded
		}
		if priority == 0 {
			priority = score
		}
	}

	if err := s.push(ctx, queue, url, priority); err != nil {
		return err
	}

	s.logger.Info().Str("url", url).Int("priority", priority).Msg("Enqueued URL")
	return nil
}

// EnqueueURLs admits a batch: links are sorted, scored, interleaved by
// host within each priority class, then admitted in order. Rejections
// count as skipped; queue_full or shutdown stops the batch early.
func (s *Service) EnqueueURLs(ctx context.Context, urls []string, priority int) *models.EnqueueSummary {
	summary := &models.EnqueueSummary{Results: []models.AdmitResult{}}
	if len(urls) == 0 {
		return summary
	}

	s.mu.Lock()
	running := s.running
	queue := s.queue
	s.mu.Unlock()

	if !running || queue == nil {
		s.logger.Warn().Int("count", len(urls)).Msg("Spider not running, cannot enqueue")
		for _, url := range urls {
			summary.Add(models.AdmitResult{URL: url, Admitted: false, Reason: models.ReasonNotRunning})
		}
		return summary
	}

	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	scored := make([]scoredLink, 0, len(sorted))
	for _, link := range sorted {
		if s.filter != nil {
			if excluded, reason := s.filter.Exclude(link, ""); excluded {
				s.logger.Debug().Str("url", link).Str("reason", reason).Msg("URL excluded by filter")
				summary.Add(models.AdmitResult{URL: link, Admitted: false, Reason: models.ReasonFilterExcluded})
				continue
			}
		}
		linkPriority := priority
		if s.priority != nil {
			score, excluded := s.priority.Score(link)
			if excluded {
				s.logger.Debug().Str("url", link).Msg("URL excluded by priority policy")
				summary.Add(models.AdmitResult{URL: link, Admitted: false, Reason: models.ReasonFilterExcluded})
				continue
			}
			if linkPriority == 0 {
				linkPriority = score
			}
		}
		scored = append(scored, scoredLink{url: link, priority: linkPriority})
	}

	for _, link := range interleaveByHost(scored) {
		if !s.IsRunning() {
			break
		}

		if err := s.push(ctx, queue, link.url, link.priority); err != nil {
			summary.Add(models.AdmitResult{URL: link.url, Admitted: false, Reason: models.AdmitReason(err)})
			if errors.Is(err, models.ErrQueueFull) {
				s.logger.Warn().Int("max_queue_size", s.config.MaxQueueSize).Msg("Queue full, stopping enqueue")
				break
			}
			continue
		}
		s.logger.Debug().Str("url", link.url).Int("priority", link.priority).Msg("Enqueued URL")
		summary.Add(models.AdmitResult{URL: link.url, Admitted: true})
	}

	s.logger.Info().
		Int("enqueued", summary.Enqueued).
		Int("skipped", summary.Skipped).
		Msg("Batch enqueue finished")
	return summary
}

// push runs the durable admission transaction then mirrors the row
// into the in-memory queue. A full queue leaves the row pending; it is
// picked up again when the queue is rebuilt.
func (s *Service) push(ctx context.Context, queue *priorityQueue, url string, priority int) error {
	if err := s.queueStore.AdmitURL(ctx, url, priority); err != nil {
		return err
	}
	return queue.TryPush(url, priority)
}

// Stats assembles the scheduler's introspection view
func (s *Service) Stats(ctx context.Context) (*models.SpiderStats, error) {
	counts, err := s.queueStore.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count queued urls: %w", err)
	}

	s.mu.Lock()
	running := s.running
	queueSize := 0
	if s.queue != nil {
		queueSize = s.queue.Len()
	}
	s.mu.Unlock()

	return &models.SpiderStats{
		Pending:      counts[models.QueueStatusPending],
		Processing:   counts[models.QueueStatusProcessing],
		Done:         counts[models.QueueStatusDone],
		Failed:       counts[models.QueueStatusFailed],
		QueueSize:    queueSize,
		MaxQueueSize: s.config.MaxQueueSize,
		Workers:      s.config.MaxWorkers,
		Running:      running,
	}, nil
}
