package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/parkshare/service-reservation/internal/application"
)

// CompletionSweeper periodically transitions confirmed reservations whose
// end time has passed to COMPLETED. Completion is time-driven, not
// request-driven: nobody has to call an endpoint for a stay to finish.
type CompletionSweeper struct {
	cron    *cron.Cron
	service *application.ReservationService
	spec    string
	logger  *zap.Logger
}

// NewCompletionSweeper creates a sweeper with the given cron spec.
func NewCompletionSweeper(service *application.ReservationService, spec string, logger *zap.Logger) *CompletionSweeper {
	return &CompletionSweeper{
		cron:    cron.New(),
		service: service,
		spec:    spec,
		logger:  logger,
	}
}

// Start schedules the sweep and begins running it.
func (s *CompletionSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("completion sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *CompletionSweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *CompletionSweeper) sweep() {
	completed, err := s.service.CompleteDueReservations(context.Background())
	if err != nil {
		s.logger.Error("completion sweep failed", zap.Error(err))
		return
	}
	if completed > 0 {
		s.logger.Info("completion sweep finished", zap.Int("completed", completed))
	}
}
