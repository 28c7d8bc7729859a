// Package app assembles the scheduling components from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/config"
	"github.com/spec-kit/voice-scheduler/internal/domain"
	"github.com/spec-kit/voice-scheduler/internal/events"
	"github.com/spec-kit/voice-scheduler/internal/llm"
	"github.com/spec-kit/voice-scheduler/internal/observability"
	"github.com/spec-kit/voice-scheduler/internal/persistence"
	"github.com/spec-kit/voice-scheduler/internal/repository"
	"github.com/spec-kit/voice-scheduler/internal/service"
	"github.com/spec-kit/voice-scheduler/internal/worker"
)

const notificationQueueSize = 256

// Components holds everything the delivery surfaces need.
type Components struct {
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Metrics  *observability.Metrics
	Staff    *domain.StaffDirectory
	Meetings repository.MeetingRepository
	Dialogue *service.DialogueService
	Worker   *worker.NotificationWorker

	logger *zap.Logger
}

// Build connects the configured backends and wires the dialogue service.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Metrics: observability.NewMetrics(), logger: logger}

	if needsPostgres(cfg.Scheduling) {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.Postgres = pg
		if cfg.Postgres.RunMigrations && pg.Enabled() {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				c.Close(ctx)
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
	}
	if needsRedis(cfg.Scheduling) {
		c.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	}

	members, err := c.loadStaff(ctx, cfg.Scheduling)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.Staff, err = domain.NewStaffDirectory(members)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	info, err := repository.LoadStoreInfo(cfg.Scheduling.StoreInfoFile)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	logger.Info("staff loaded", zap.Int("count", c.Staff.Len()), zap.String("store", info.Name))

	c.Meetings, err = c.meetingRepository(cfg.Scheduling)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	sessions := c.sessionRepository(cfg.Scheduling)

	c.Worker = worker.NewNotificationWorker(events.NewInMemoryDispatcher(logger), notificationQueueSize, logger)
	worker.StartNotificationWorker(service.NewNotificationService(c.Worker, logger, cfg.Notification), c.Worker)

	engine, err := service.NewConversationEngine(service.EngineDependencies{
		Staff:      c.Staff,
		Meetings:   c.Meetings,
		StoreInfo:  info,
		Dispatcher: c.Worker,
		Logger:     logger,
	})
	if err != nil {
		c.Close(ctx)
		return nil, err
	}

	deps := service.DialogueDependencies{
		Engine:     engine,
		Sessions:   sessions,
		Dispatcher: c.Worker,
		Metrics:    c.Metrics,
		Logger:     logger,
	}
	if cfg.LLM.Enabled() {
		replier, err := llm.NewOpenAIReplier(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout(),
		}, info, c.Staff.Names())
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		deps.Replier = replier
		logger.Info("free-form replies enabled", zap.String("model", cfg.LLM.Model))
	}

	c.Dialogue, err = service.NewDialogueService(deps)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	return c, nil
}

// Close drains pending notifications and releases backend connections.
func (c *Components) Close(ctx context.Context) {
	if c.Worker != nil {
		if err := c.Worker.Stop(ctx); err != nil {
			c.logger.Warn("notification worker stop", zap.Error(err))
		}
	}
	c.Redis.Close()
	c.Postgres.Close()
}

func (c *Components) loadStaff(ctx context.Context, cfg config.SchedulingConfig) ([]domain.StaffMember, error) {
	if cfg.StaffSource == config.BackendPostgres {
		return repository.NewStaffRepository(c.Postgres.PoolHandle()).List(ctx)
	}
	return repository.LoadStaffFile(cfg.StaffFile)
}

func (c *Components) meetingRepository(cfg config.SchedulingConfig) (repository.MeetingRepository, error) {
	switch cfg.MeetingStore {
	case config.BackendMemory:
		return repository.NewMemoryMeetingRepository(), nil
	case config.BackendPostgres:
		return repository.NewMeetingRepository(c.Postgres.PoolHandle()), nil
	case config.BackendRedis:
		return repository.NewRedisMeetingRepository(c.Redis.Client), nil
	default:
		return repository.NewFileMeetingRepository(cfg.MeetingsDir, c.logger)
	}
}

func (c *Components) sessionRepository(cfg config.SchedulingConfig) repository.SessionRepository {
	if cfg.SessionStore == config.BackendRedis {
		return repository.NewRedisSessionRepository(c.Redis.Client, cfg.SessionTTL())
	}
	return repository.NewMemorySessionRepository(cfg.SessionTTL())
}

func needsPostgres(cfg config.SchedulingConfig) bool {
	return cfg.StaffSource == config.BackendPostgres || cfg.MeetingStore == config.BackendPostgres
}

func needsRedis(cfg config.SchedulingConfig) bool {
	return cfg.MeetingStore == config.BackendRedis || cfg.SessionStore == config.BackendRedis
}
