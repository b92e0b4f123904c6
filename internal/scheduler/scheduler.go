package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/service/reporting"
	"github.com/mamadbah2/medstock/internal/service/whatsapp"
)

// DailyReporter builds and archives the end-of-day report.
type DailyReporter interface {
	GenerateDailyReport(ctx context.Context, now time.Time) (models.DailyReport, error)
}

// Scheduler runs the daily stock report.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	reporter   DailyReporter
	messaging  whatsapp.MessagingService
	recipients []string
	logger     *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a scheduler that evaluates schedule in loc and sends
// the report to recipients.
func NewScheduler(schedule string, loc *time.Location, reporter DailyReporter, messaging whatsapp.MessagingService, recipients []string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		schedule:   schedule,
		reporter:   reporter,
		messaging:  messaging,
		recipients: recipients,
		logger:     logger,
		now:        func() time.Time { return time.Now().In(loc) },
	}
}

// Start registers the daily report job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.SendDailyReport); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// SendDailyReport generates the report and sends it to every recipient.
func (s *Scheduler) SendDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reporter.GenerateDailyReport(ctx, s.now())
	if err != nil {
		// The report is still returned when only archiving failed.
		s.logger.Error("failed to archive daily report", zap.Error(err))
	}
	message := reporting.FormatDailyReport(report)

	for _, to := range s.recipients {
		if err := s.messaging.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: message}); err != nil {
			s.logger.Error("failed to send daily report", zap.String("to", to), zap.Error(err))
			continue
		}
		s.logger.Info("daily report sent", zap.String("to", to))
	}
}
