// Command server wires the reserve, activity lifecycle, score engine,
// governance, and private-deployment services behind one HTTP surface.
// Business logic lives in the internal service packages; this file only
// selects backends from configuration and manages the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/tawf-labs/amana-reserve/internal/activity"
	activityhandler "github.com/tawf-labs/amana-reserve/internal/activity/handler"
	activitymetrics "github.com/tawf-labs/amana-reserve/internal/activity/metrics"
	"github.com/tawf-labs/amana-reserve/internal/bridge"
	"github.com/tawf-labs/amana-reserve/internal/compliance"
	compliancehandler "github.com/tawf-labs/amana-reserve/internal/compliance/handler"
	"github.com/tawf-labs/amana-reserve/internal/governance"
	governancehandler "github.com/tawf-labs/amana-reserve/internal/governance/handler"
	governancemetrics "github.com/tawf-labs/amana-reserve/internal/governance/metrics"
	"github.com/tawf-labs/amana-reserve/internal/hai"
	haihandler "github.com/tawf-labs/amana-reserve/internal/hai/handler"
	haimetrics "github.com/tawf-labs/amana-reserve/internal/hai/metrics"
	httpapi "github.com/tawf-labs/amana-reserve/internal/http"
	"github.com/tawf-labs/amana-reserve/internal/platform/config"
	"github.com/tawf-labs/amana-reserve/internal/platform/httpserver"
	"github.com/tawf-labs/amana-reserve/internal/platform/logger"
	platformredis "github.com/tawf-labs/amana-reserve/internal/platform/redis"
	"github.com/tawf-labs/amana-reserve/internal/private"
	privatehandler "github.com/tawf-labs/amana-reserve/internal/private/handler"
	"github.com/tawf-labs/amana-reserve/internal/reserve"
	reservehandler "github.com/tawf-labs/amana-reserve/internal/reserve/handler"
	reservemetrics "github.com/tawf-labs/amana-reserve/internal/reserve/metrics"
	dErrors "github.com/tawf-labs/amana-reserve/pkg/domain-errors"
	auditpublisher "github.com/tawf-labs/amana-reserve/pkg/platform/audit/publisher"
	auditmemory "github.com/tawf-labs/amana-reserve/pkg/platform/audit/store/memory"
	auditpg "github.com/tawf-labs/amana-reserve/pkg/platform/audit/store/postgres"
	"github.com/tawf-labs/amana-reserve/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store selection: one Postgres pool shared by every store, or the
	// in-memory backends for local development.
	var (
		db     *sql.DB
		runner tx.Runner

		reserveStore    reserve.Store
		activityStore   activity.Store
		complianceStore compliance.Store
		haiStore        hai.Store
		governanceStore governance.Store
		privateStore    private.Store

		auditor *auditpublisher.Publisher
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}

		runner = tx.NewSQLRunner(db)
		reserveStore = reserve.NewPostgresStore(db)
		activityStore = activity.NewPostgresStore(db)
		complianceStore = compliance.NewPostgresStore(db)
		haiStore = hai.NewPostgresStore(db)
		governanceStore = governance.NewPostgresStore(db)
		privateStore = private.NewPostgresStore(db)
		auditor = auditpublisher.NewPublisher(auditpg.New(db),
			auditpublisher.WithAsyncBuffer(256),
			auditpublisher.WithLogger(log))
	} else {
		runner = tx.NewInMemoryRunner()
		reserveStore = reserve.NewInMemoryStore()
		activityStore = activity.NewInMemoryStore()
		complianceStore = compliance.NewInMemoryStore()
		haiStore = hai.NewInMemoryStore()
		governanceStore = governance.NewInMemoryStore()
		privateStore = private.NewInMemoryStore()
		auditor = auditpublisher.NewPublisher(auditmemory.NewInMemoryStore(),
			auditpublisher.WithLogger(log))
	}
	defer auditor.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var outbox bridge.Outbox = bridge.NewMemoryOutbox()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaOutbox, err := bridge.NewKafkaOutbox(ctx, cfg.KafkaBrokers, cfg.BridgeTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaOutbox.Close()
		outbox = kafkaOutbox
	}

	reserveSvc := reserve.NewService(reserveStore, runner,
		reserve.WithAuditor(auditor),
		reserve.WithMetrics(reservemetrics.New()),
		reserve.WithLogger(log))
	complianceSvc := compliance.NewService(complianceStore,
		compliance.WithAuditor(auditor),
		compliance.WithLogger(log))
	haiSvc := hai.NewService(haiStore, runner,
		hai.WithCache(hai.NewSnapshotCache(redisClient)),
		hai.WithAuditor(auditor),
		hai.WithMetrics(haimetrics.New()),
		hai.WithLogger(log))
	activitySvc := activity.NewService(activityStore, reserveSvc, complianceSvc, haiSvc, runner,
		activity.WithOutbox(outbox),
		activity.WithAuditor(auditor),
		activity.WithMetrics(activitymetrics.New()),
		activity.WithLogger(log))
	governanceSvc := governance.NewService(governanceStore, runner,
		governance.WithAuditor(auditor),
		governance.WithMetrics(governancemetrics.New()),
		governance.WithLogger(log))
	privateSvc := private.NewService(privateStore, runner,
		private.WithAuditor(auditor),
		private.WithLogger(log))

	if err := bootstrap(ctx, cfg, reserveSvc, governanceSvc, haiSvc); err != nil {
		log.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	reserveH := reservehandler.New(reserveSvc, log)
	activityH := activityhandler.New(activitySvc, log)
	complianceH := compliancehandler.New(complianceSvc, log)
	haiH := haihandler.New(haiSvc, log)
	governanceH := governancehandler.New(governanceSvc, log)
	privateH := privatehandler.New(privateSvc, log)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
		AdminToken:    cfg.AdminToken,
		Handlers: []httpapi.Registrar{
			reserveH, activityH, complianceH, haiH, governanceH, privateH,
		},
		AdminHandlers: []httpapi.AdminRegistrar{
			reserveH, activityH, haiH, governanceH, privateH,
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "postgres", cfg.PostgresURL != "", "redis", redisClient != nil, "kafka", len(cfg.KafkaBrokers) > 0)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// bootstrap seeds the reserve, governance, and score singletons on first
// start so a fresh deployment serves traffic without manual admin calls.
// Existing state is left untouched.
func bootstrap(ctx context.Context, cfg config.Config, reserveSvc *reserve.Service, governanceSvc *governance.Service, haiSvc *hai.Service) error {
	if _, err := reserveSvc.State(ctx); dErrors.HasCode(err, dErrors.CodeNotFound) {
		if _, err := reserveSvc.Initialize(ctx, cfg.AdminIdentity, cfg.Reserve.MinContribution, cfg.Reserve.MaxParticipants); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if _, err := governanceSvc.State(ctx); dErrors.HasCode(err, dErrors.CodeNotFound) {
		if _, err := governanceSvc.Initialize(ctx, cfg.AdminIdentity,
			cfg.Governance.VotingDelay, cfg.Governance.VotingPeriod, cfg.Governance.QuorumBps); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if _, err := haiSvc.State(ctx); dErrors.HasCode(err, dErrors.CodeNotFound) {
		if _, err := haiSvc.Initialize(ctx, cfg.AdminIdentity, cfg.Hai.InitialScore); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}
