package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PassFailures struct {
	CatalogUnavailable      int `json:"catalog_unavailable"`
	NotificationWriteFailed int `json:"notification_write_failed"`
	InvalidCriteria         int `json:"invalid_criteria"`
	CheckpointConflicts     int `json:"checkpoint_conflicts"`
	CheckpointWriteFailed   int `json:"checkpoint_write_failed"`
	Panics                  int `json:"panics"`
}

type PassSummary struct {
	PassID               string       `json:"pass_id"`
	Now                  time.Time    `json:"now"`
	StartedAt            time.Time    `json:"started_at"`
	FinishedAt           time.Time    `json:"finished_at"`
	Due                  int          `json:"due"`
	Evaluated            int          `json:"evaluated"`
	Skipped              int          `json:"skipped"`
	Matched              int          `json:"matched"`
	NotificationsCreated int          `json:"notifications_created"`
	Duplicates           int          `json:"duplicates"`
	Failures             PassFailures `json:"failures"`
}

type PassConfig struct {
	Workers        int
	CatalogTimeout time.Duration
	LeaseTTL       time.Duration
}

// PassCoordinator runs one schedule -> match -> emit -> checkpoint cycle per call.
// Run is safe to call concurrently.
type PassCoordinator struct {
	alerts  domain.AlertRepository
	catalog domain.PropertyCatalog
	emitter *Emitter
	lease   domain.AlertLease
	cfg     PassConfig
	logger  *zap.Logger
}

func NewPassCoordinator(alerts domain.AlertRepository, catalog domain.PropertyCatalog, emitter *Emitter, lease domain.AlertLease, cfg PassConfig, logger *zap.Logger) *PassCoordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = 10 * time.Second
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 2 * time.Minute
	}
	return &PassCoordinator{
		alerts:  alerts,
		catalog: catalog,
		emitter: emitter,
		lease:   lease,
		cfg:     cfg,
		logger:  logger,
	}
}

type alertOutcome struct {
	evaluated     bool
	skipped       bool
	matched       int
	created       int
	duplicates    int
	writeFailures int
	catalogDown   bool
	invalid       bool
	conflict      bool
	checkpointErr bool
	panicked      bool
}

func (c *PassCoordinator) Run(ctx context.Context, now time.Time) (PassSummary, error) {
	summary := PassSummary{PassID: uuid.NewString(), Now: now, StartedAt: time.Now()}
	log := c.logger.With(zap.String("pass_id", summary.PassID))

	alerts, err := c.alerts.ListEnabled(ctx)
	if err != nil {
		metrics.PassesTotal.WithLabelValues("failed").Inc()
		log.Error("failed to load alerts", zap.Error(err))
		summary.FinishedAt = time.Now()
		return summary, fmt.Errorf("load alerts: %w", err)
	}

	due := DueAlerts(alerts, now)
	summary.Due = len(due)
	metrics.AlertsDue.Set(float64(len(due)))
	log.Info("pass started", zap.Time("now", now), zap.Int("enabled", len(alerts)), zap.Int("due", len(due)))

	workers := c.cfg.Workers
	if workers > len(due) {
		workers = len(due)
	}

	jobs := make(chan domain.Alert)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for alert := range jobs {
				outcome := c.evaluateSafe(ctx, log, alert, now)
				mu.Lock()
				summary.add(outcome)
				mu.Unlock()
			}
		}()
	}
	for _, alert := range due {
		jobs <- alert
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now()
	metrics.PassesTotal.WithLabelValues("completed").Inc()
	metrics.PassDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	log.Info(
		"pass complete",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("matched", summary.Matched),
		zap.Int("created", summary.NotificationsCreated),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("catalog_unavailable", summary.Failures.CatalogUnavailable),
		zap.Int("write_failed", summary.Failures.NotificationWriteFailed),
		zap.Int("invalid_criteria", summary.Failures.InvalidCriteria),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (c *PassCoordinator) evaluateSafe(ctx context.Context, log *zap.Logger, alert domain.Alert, now time.Time) (outcome alertOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("alert evaluation panic recovered",
				zap.Uint("alert_id", alert.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			metrics.PanicsRecovered.WithLabelValues("pass").Inc()
			metrics.AlertsEvaluatedTotal.WithLabelValues("failed").Inc()
			outcome = alertOutcome{panicked: true}
		}
	}()
	return c.evaluate(ctx, log.With(zap.Uint("alert_id", alert.ID)), alert, now)
}

func (c *PassCoordinator) evaluate(ctx context.Context, log *zap.Logger, alert domain.Alert, now time.Time) alertOutcome {
	var outcome alertOutcome

	release, err := c.lease.Acquire(ctx, alert.ID, c.cfg.LeaseTTL)
	switch {
	case errors.Is(err, domain.ErrLeaseBusy):
		outcome.skipped = true
		metrics.AlertsEvaluatedTotal.WithLabelValues("skipped").Inc()
		log.Info("alert skipped: held by another pass")
		return outcome
	case err != nil:
		// Uniqueness and the checkpoint compare-and-set still hold without the lease.
		log.Warn("alert lease unavailable, evaluating without it", zap.Error(err))
	default:
		defer release()
	}

	fresh, err := c.alerts.GetByID(ctx, alert.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			outcome.skipped = true
			metrics.AlertsEvaluatedTotal.WithLabelValues("skipped").Inc()
			log.Info("alert skipped: deleted during pass")
			return outcome
		}
		outcome.catalogDown = true
		metrics.AlertsEvaluatedTotal.WithLabelValues("catalog_unavailable").Inc()
		log.Warn("failed to reload alert", zap.Error(err))
		return outcome
	}
	if !IsDue(*fresh, now) {
		outcome.skipped = true
		metrics.AlertsEvaluatedTotal.WithLabelValues("skipped").Inc()
		log.Debug("alert skipped: no longer due")
		return outcome
	}
	alert = *fresh

	// Criteria are checked on the reloaded alert; the owner may have edited it since the list.
	if err := ValidateCriteria(alert.Criteria); err != nil {
		outcome.invalid = true
		metrics.AlertsEvaluatedTotal.WithLabelValues("invalid_criteria").Inc()
		log.Warn("alert skipped: invalid criteria", zap.Error(err))
		if !alert.NeedsReview || alert.ReviewReason != err.Error() {
			if flagErr := c.alerts.FlagForReview(ctx, alert.ID, err.Error()); flagErr != nil {
				log.Error("failed to flag alert for review", zap.Error(flagErr))
			}
		}
		return outcome
	}

	properties, err := c.queryCatalog(ctx, alert)
	if err != nil {
		outcome.catalogDown = true
		metrics.AlertsEvaluatedTotal.WithLabelValues("catalog_unavailable").Inc()
		log.Warn("catalog query failed, checkpoint kept", zap.Error(err))
		return outcome
	}

	matches := make([]domain.Property, 0, len(properties))
	for _, property := range properties {
		if Eligible(alert, property) {
			matches = append(matches, property)
		}
	}

	result := c.emitter.Emit(ctx, alert, matches, now)

	outcome.evaluated = true
	outcome.matched = len(matches)
	outcome.created = result.Created
	outcome.duplicates = result.Duplicates
	outcome.writeFailures = len(result.WriteFailures)
	outcome.conflict = result.CheckpointConflict
	outcome.checkpointErr = result.CheckpointErr != nil

	metrics.AlertsEvaluatedTotal.WithLabelValues("ok").Inc()
	metrics.NotificationsCreatedTotal.Add(float64(result.Created))
	metrics.NotificationDuplicatesTotal.Add(float64(result.Duplicates))
	metrics.NotificationWriteFailuresTotal.Add(float64(len(result.WriteFailures)))
	if result.CheckpointConflict {
		metrics.CheckpointConflictsTotal.Inc()
	}

	log.Debug("alert evaluated",
		zap.Int("candidates", len(properties)),
		zap.Int("matched", len(matches)),
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates),
	)
	return outcome
}

func (c *PassCoordinator) queryCatalog(ctx context.Context, alert domain.Alert) ([]domain.Property, error) {
	qctx, cancel := context.WithTimeout(ctx, c.cfg.CatalogTimeout)
	defer cancel()

	start := time.Now()
	properties, err := c.catalog.Find(qctx, domain.CatalogQuery{
		CreatedAfter: alert.WindowStart(),
		Status:       domain.PropertyAvailable,
		Criteria:     alert.Criteria,
	})
	metrics.CatalogQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return properties, nil
}

func (s *PassSummary) add(o alertOutcome) {
	if o.evaluated {
		s.Evaluated++
	}
	if o.skipped {
		s.Skipped++
	}
	s.Matched += o.matched
	s.NotificationsCreated += o.created
	s.Duplicates += o.duplicates
	s.Failures.NotificationWriteFailed += o.writeFailures
	if o.catalogDown {
		s.Failures.CatalogUnavailable++
	}
	if o.invalid {
		s.Failures.InvalidCriteria++
	}
	if o.conflict {
		s.Failures.CheckpointConflicts++
	}
	if o.checkpointErr {
		s.Failures.CheckpointWriteFailed++
	}
	if o.panicked {
		s.Failures.Panics++
	}
}
