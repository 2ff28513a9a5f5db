package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Executor işi çağıranın goroutine'inde çalıştırır; jobs.Runner bunu sağlar.
type Executor interface {
	Execute(ctx context.Context, name string) error
}

// Scheduler tek bir isimli işi cron ifadesine göre tetikler.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    string
	exec   Executor
	logger *zap.Logger
}

// NewScheduler işi cron ifadesine göre exec üzerinden çalıştıran zamanlayıcıyı kurar.
func NewScheduler(spec, job string, exec Executor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	cl := cronLogger{logger.Sugar()}
	// bir tur bitmeden gelen tetik atlanır
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:   c,
		spec:   spec,
		job:    job,
		exec:   exec,
		logger: logger,
	}
}

// Start işi kaydeder ve zamanlayıcıyı başlatır. Geçersiz ifade hata döner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", s.job, s.spec, err)
	}
	s.logger.Info("starting scheduler", zap.String("job", s.job), zap.String("spec", s.spec))
	s.cron.Start()
	return nil
}

// Stop çalışan turun bitmesini bekler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.logger.Info("scheduled run", zap.String("job", s.job))
	if err := s.exec.Execute(ctx, s.job); err != nil {
		s.logger.Error("scheduled run failed", zap.String("job", s.job), zap.Error(err))
	}
}

type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
