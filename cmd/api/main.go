package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketflow/internal/api/http"
	"github.com/spec-kit/ticketflow/internal/api/http/handlers"
	"github.com/spec-kit/ticketflow/internal/auth"
	"github.com/spec-kit/ticketflow/internal/config"
	"github.com/spec-kit/ticketflow/internal/events"
	"github.com/spec-kit/ticketflow/internal/lock"
	"github.com/spec-kit/ticketflow/internal/notify"
	"github.com/spec-kit/ticketflow/internal/observability"
	"github.com/spec-kit/ticketflow/internal/persistence"
	"github.com/spec-kit/ticketflow/internal/repository"
	"github.com/spec-kit/ticketflow/internal/repository/memstore"
	"github.com/spec-kit/ticketflow/internal/service"
	"github.com/spec-kit/ticketflow/internal/worker"
)

type repositories struct {
	tickets       repository.TicketRepository
	history       repository.TicketHistoryRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	users         repository.UserRepository
	teams         repository.TeamRepository
	projects      repository.ProjectRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(pg)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.UseRedis {
		locker = lock.NewRedis(redis.Client, cfg.Lock.RedisKeyPrefix, cfg.Lock.TTL(), cfg.Lock.Wait(), logger)
		logger.Info("decision lock backed by redis")
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: repos.users,
		TeamRepo: repos.teams,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		CommentRepo: repos.comments,
		TeamRepo:    repos.teams,
		ProjectRepo: repos.projects,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo: repos.tickets,
		Locker:     locker,
		Dispatcher: dispatcher,
		Recorder:   metrics,
		Logger:     logger,
	})
	orgService := service.NewOrgService(service.OrgDependencies{
		ProjectRepo: repos.projects,
		TeamRepo:    repos.teams,
	})

	var mirrors []notify.Deliverer
	if hook := notify.NewWebhook(cfg.Notification.WebhookURL, time.Duration(cfg.Notification.WebhookTimeoutSeconds)*time.Second); hook != nil {
		mirrors = append(mirrors, hook)
	}
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: repos.notifications,
		CommentRepo:      repos.comments,
		UserRepo:         repos.users,
		Deliverer:        notify.NewChain(logger, notify.NewInbox(repos.notifications), mirrors...),
		Logger:           logger,
	})

	pool := worker.NewNotificationPool(notificationService, cfg.Notification.Workers, cfg.Notification.QueueSize, logger)
	worker.StartNotificationWorker(dispatcher, pool, service.HandledEvents()...)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Org:            handlers.NewOrgHandler(orgService),
		Tickets:        handlers.NewTicketsHandler(ticketService, workflowService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := pool.Stop(drainCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Configured() {
		store := memstore.New()
		return repositories{
			tickets:       store.Tickets(),
			history:       store.History(),
			comments:      store.Comments(),
			notifications: store.Notifications(),
			users:         store.Users(),
			teams:         store.Teams(),
			projects:      store.Projects(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:       repository.NewTicketRepository(pool),
		history:       repository.NewTicketHistoryRepository(pool),
		comments:      repository.NewCommentRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
		users:         repository.NewUserRepository(pool),
		teams:         repository.NewTeamRepository(pool),
		projects:      repository.NewProjectRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
