package spider

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/aranea/internal/models"
)

// runWorker is the main worker loop: pop, claim, cooldown, scrape,
// persist. It exits when the queue closes or the context ends.
func (s *Service) runWorker(ctx context.Context, queue *priorityQueue, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	s.logger.Debug().Int("worker_id", workerID).Msg("Worker started")

	for {
		item, err := queue.Pop(ctx)
		if err != nil {
			s.logger.Debug().Int("worker_id", workerID).Msg("Worker stopped")
			return
		}
		s.processURL(ctx, workerID, item.url)
	}
}

// processURL runs one URL through the full scrape pipeline. Every
// outcome lands in the url_queue row; job rows record the attempt
// history.
func (s *Service) processURL(ctx context.Context, workerID int, url string) {
	s.logger.Info().Int("worker_id", workerID).Str("url", url).Msg("Processing URL")

	claimed, err := s.queueStore.ClaimURL(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to claim URL")
		return
	}
	if !claimed {
		// Absent, already done, poisoned, or held by another worker
		s.logger.Debug().Str("url", url).Msg("URL not claimable, skipping")
		return
	}

	if err := s.cooldown(ctx); err != nil {
		// Shutdown mid-cooldown; the processing row is recovered at next start
		s.logger.Debug().Str("url", url).Msg("Cooldown interrupted, abandoning claim")
		return
	}

	job := models.NewScrapeJob(url)
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to create scrape job")
		s.failURL(ctx, url, err)
		return
	}
	job.MarkStarted()
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
		s.failURL(ctx, url, err)
		return
	}

	result, err := s.scraper.Scrape(ctx, url)
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to scrape URL")
		s.failJob(ctx, job, err.Error())
		s.failURL(ctx, url, err)
		return
	}

	// Second filter layer: the fetched page itself can be excluded
	if s.filter != nil {
		if excluded, reason := s.filter.Exclude(url, result.HTML); excluded {
			s.logger.Info().Str("url", url).Str("reason", reason).Msg("Content excluded by filter, skipping")
			s.failJob(ctx, job, contentExcludedMessage)
			if err := s.queueStore.MarkDone(ctx, url, contentExcludedMessage); err != nil {
				s.logger.Error().Err(err).Str("url", url).Msg("Failed to mark url done")
			}
			return
		}
	}

	if _, err := s.resultStore.SaveResult(ctx, job.ID, result); err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to save result")
		s.failJob(ctx, job, err.Error())
		s.failURL(ctx, url, err)
		return
	}
	job.MarkCompleted()
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
	}

	s.logger.Info().
		Int("worker_id", workerID).
		Str("url", url).
		Int("article_links", len(result.ArticleLinks)).
		Msg("Successfully scraped URL")

	if len(result.ArticleLinks) > 0 {
		s.EnqueueURLs(ctx, result.ArticleLinks, 0)
	}

	if err := s.queueStore.MarkDone(ctx, url, ""); err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to mark url done")
	}
}

// cooldown sleeps between the claim and the fetch so consecutive
// requests from one worker stay polite.
func (s *Service) cooldown(ctx context.Context) error {
	delay := s.config.Cooldown()
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// failJob marks the job failed, keeping the first error if the status
// update itself fails.
func (s *Service) failJob(ctx context.Context, job *models.ScrapeJob, message string) {
	job.MarkFailed(message)
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
	}
}

// failURL records a failed attempt on the frontier row, decrementing
// processing_count toward the poison threshold.
func (s *Service) failURL(ctx context.Context, url string, cause error) {
	if err := s.queueStore.MarkFailed(ctx, url, cause.Error()); err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("Failed to record URL failure")
	}
}
