package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Completer сохраняет completed для прошедших подтверждённых записей
type Completer interface {
	CompleteElapsed(ctx context.Context) (int64, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	cron      *cron.Cron
	completer Completer
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc

	// первый проход идёт вне cron, Stop ждёт его отдельно
	initial sync.WaitGroup
}

// NewScheduler создаёт планировщик с задачей завершения прошедших занятий.
// spec задаётся в формате cron из пяти полей.
func NewScheduler(spec string, completer Completer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		completer: completer,
		logger:    logger,
	}

	if _, err := s.cron.AddFunc(spec, s.completeElapsed); err != nil {
		return nil, fmt.Errorf("schedule completion sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start запускает фоновые задачи; первый проход выполняется сразу
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.completeElapsed()
	}()
	s.cron.Start()
}

// Stop останавливает планировщик и дожидается текущих проходов, включая первый
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")

	<-s.cron.Stop().Done()
	s.initial.Wait()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) completeElapsed() {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	completed, err := s.completer.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error("Failed to complete elapsed appointments", zap.Error(err))
		return
	}

	s.logger.Debug("Completion sweep finished", zap.Int64("completed", completed))
}
