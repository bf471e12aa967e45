package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	JobSweep       = "sweep"
	JobAuditExport = "audit-export"

	defaultSweepSpec       = "0 */15 * * * *"
	defaultAuditExportSpec = "0 10 0 * * *"
	runTimeout             = 5 * time.Minute

	// Claims are only contested around their own period, so a week of
	// history is plenty.
	claimRetention = 7 * 24 * time.Hour
)

// Claimer hands out each (job, period) pair to exactly one caller. Prune
// forgets claims started before cutoff.
type Claimer interface {
	Claim(ctx context.Context, job string, period string, now time.Time) (bool, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type OtpSweeper interface {
	CleanupExpired(ctx context.Context) (int64, int64, error)
}

type AuditExporter interface {
	ExportDay(ctx context.Context, day time.Time) (int, error)
}

type Deps struct {
	Claims   Claimer
	Sessions SessionSweeper
	Otp      OtpSweeper
	Exporter AuditExporter
}

type Scheduler struct {
	cron *cron.Cron
	deps Deps
	log  zerolog.Logger
	now  func() time.Time

	sweepSpec  string
	exportSpec string
}

func NewScheduler(deps Deps, sweepSpec, exportSpec string, log zerolog.Logger) *Scheduler {
	if sweepSpec == "" {
		sweepSpec = defaultSweepSpec
	}
	if exportSpec == "" {
		exportSpec = defaultAuditExportSpec
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		deps:       deps,
		log:        log.With().Str("component", "jobs").Logger(),
		now:        time.Now,
		sweepSpec:  sweepSpec,
		exportSpec: exportSpec,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.sweepSpec, func() { s.run(JobSweep, s.Sweep) }); err != nil {
		return err
	}
	if s.deps.Exporter != nil {
		if _, err := s.cron.AddFunc(s.exportSpec, func() { s.run(JobAuditExport, s.ExportPreviousDay) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(job string, fn func(ctx context.Context, now time.Time) error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := fn(ctx, s.now().UTC()); err != nil {
		s.log.Error().Err(err).Str("job", job).Msg("job failed")
	}
}

// Sweep removes expired sessions, dead OTP challenges, expired verification
// tokens and old job claims. The period is the current minute.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) error {
	period := now.Truncate(time.Minute).Format(time.RFC3339)
	ok, err := s.claim(ctx, JobSweep, period, now)
	if err != nil || !ok {
		return err
	}

	sessions, err := s.deps.Sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		return err
	}
	challenges, tokens, err := s.deps.Otp.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	claims, err := s.deps.Claims.Prune(ctx, now.Add(-claimRetention))
	if err != nil {
		s.log.Warn().Err(err).Msg("prune job runs failed")
	}

	s.log.Info().
		Str("period", period).
		Int64("sessions", sessions).
		Int64("challenges", challenges).
		Int64("verification_tokens", tokens).
		Int64("job_runs", claims).
		Msg("sweep finished")
	return nil
}

// ExportPreviousDay archives the audit entries of the UTC day before now.
func (s *Scheduler) ExportPreviousDay(ctx context.Context, now time.Time) error {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	period := day.Format("2006-01-02")
	ok, err := s.claim(ctx, JobAuditExport, period, now)
	if err != nil || !ok {
		return err
	}

	n, err := s.deps.Exporter.ExportDay(ctx, day)
	if err != nil {
		return err
	}
	s.log.Info().Str("period", period).Int("entries", n).Msg("audit export finished")
	return nil
}

func (s *Scheduler) claim(ctx context.Context, job, period string, now time.Time) (bool, error) {
	ok, err := s.deps.Claims.Claim(ctx, job, period, now)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Debug().Str("job", job).Str("period", period).Msg("period already claimed")
	}
	return ok, nil
}
