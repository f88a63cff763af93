// cmd/main.go in escrow-service
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/config"
	grpcServer "github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/handler/grpc"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/audit"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/domain/policy"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/events"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/ledger"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/lock"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/platform/sqldb"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/reconcile"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/internal/txn"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/service"
	"github.com/Tanmoy095/LogiSynapse-escrow/services/escrow-service/store"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/kafka"
	"github.com/Tanmoy095/LogiSynapse-escrow/shared/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "escrow-service: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "escrow-service: build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("escrow-service stopped", "error", err)
	}
	log.Info("escrow-service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	deps, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Locker: Redis when several instances share one database.
	if cfg.RedisAddr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Locker = lock.NewRedisLocker(rdb, log, lock.WithTTL(cfg.LockTTL))
		log.Info("using redis shipment locks", "addr", cfg.RedisAddr)
	} else {
		deps.Locker = lock.NewLocalLocker()
	}

	var sinks events.Multi
	if cfg.KafkaEnabled() {
		producer := kafka.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		sinks = append(sinks, events.NewKafkaRecorder(producer))
		log.Info("publishing settlement events", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}
	if cfg.AuditLogPath != "" {
		auditLog, err := audit.NewJSONLStore(cfg.AuditLogPath)
		if err != nil {
			return err
		}
		defer auditLog.Close()
		sinks = append(sinks, auditLog)
	}
	deps.Recorder = sinks
	deps.Log = log

	perms, err := cfg.Permissions()
	if err != nil {
		return err
	}
	svc, err := service.NewEscrowService(deps, service.Settings{
		Custody:     cfg.Custody(),
		Split:       cfg.Split(),
		Unreported:  cfg.Unreported(),
		Permissions: perms,
	})
	if err != nil {
		return err
	}
	if err := seedBalances(ctx, cfg, svc, log); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(grpcServer.LoggingInterceptor(log)))
	grpcServer.RegisterEscrowServiceServer(srv, grpcServer.NewEscrowServer(svc))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(contracts.EscrowServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server running",
			"addr", cfg.GRPCAddr,
			"storage", cfg.Storage,
			"supplier_bps", cfg.SupplierBasisPoints,
			"unreported_policy", cfg.UnreportedPolicy,
			"finalize_roles", perms.Allowed(policy.OpFinalize),
		)
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	if reporter, ok := deps.Store.(store.EscrowReporter); ok && cfg.ReconcileInterval > 0 {
		r := reconcile.NewReconciler(reporter, deps.Ledger, svc.CustodyAccount(), cfg.ReconcileInterval, log)
		g.Go(func() error { return r.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gRPC server")
		healthSrv.Shutdown()
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// openBackend builds registry, ledger and transaction manager on one backend.
func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.Deps, func(), error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		db, err := sqldb.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return service.Deps{}, nil, err
		}
		log.Info("using sqlite storage", "path", cfg.SQLitePath)
		return service.Deps{
			Store:  store.NewSQLStore(db),
			Ledger: ledger.NewSQLLedger(db),
			Tx:     txn.NewSQLManager(db.DB, sql.LevelDefault),
		}, func() { _ = db.Close() }, nil
	case config.StoragePostgres:
		db, err := sqldb.OpenPostgres(ctx, cfg.GetDBURL())
		if err != nil {
			return service.Deps{}, nil, err
		}
		log.Info("using postgres storage", "host", cfg.DBHost, "db", cfg.DBName)
		return service.Deps{
			Store:  store.NewSQLStore(db),
			Ledger: ledger.NewSQLLedger(db),
			Tx:     txn.NewSQLManager(db.DB, sql.LevelReadCommitted),
		}, func() { _ = db.Close() }, nil
	default:
		log.Warn("using in-memory storage, state is lost on restart")
		return service.Deps{
			Store:  store.NewMemoryStore(),
			Ledger: ledger.NewMemoryLedger(),
			Tx:     txn.NewMemoryManager(),
		}, func() {}, nil
	}
}

func seedBalances(ctx context.Context, cfg *config.Config, svc *service.EscrowService, log *logger.Logger) error {
	balances, err := cfg.Balances()
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		return nil
	}
	if cfg.Storage != config.StorageMemory {
		log.Warn("ignoring opening balances for durable storage", "storage", cfg.Storage)
		return nil
	}
	for account, amount := range balances {
		if err := svc.Deposit(ctx, account, amount, "opening-balance"); err != nil {
			return fmt.Errorf("seed %s: %w", account, err)
		}
	}
	return nil
}
