// panelshop-admin is the operator CLI for maintenance tasks: ledger
// cleanup, orphan listing and storage audits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonartis/panelshop/internal/config"
	"github.com/sonartis/panelshop/internal/lock"
	"github.com/sonartis/panelshop/internal/repository"
	"github.com/sonartis/panelshop/internal/repository/postgres"
	"github.com/sonartis/panelshop/internal/repository/sqlite"
	"github.com/sonartis/panelshop/internal/service"
	"github.com/sonartis/panelshop/internal/storage"
)

const usage = `Usage: panelshop-admin [-config FILE] COMMAND

Commands:
  cleanup    purge used ledger rows older than the retention window
  orphans    list unused ledger rows (orphan candidates)
  audit      list stored upload blobs that have no ledger row
`

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "panelshop-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, command string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Operator tooling logs warnings and errors only; command output
	// goes to stdout.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx := context.Background()

	ledger, closeDB, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	switch command {
	case "cleanup":
		return runCleanup(ctx, ledger, cfg, logger)
	case "orphans":
		return runOrphans(ctx, ledger)
	case "audit":
		return runAudit(ctx, ledger, cfg, logger)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runCleanup(ctx context.Context, ledger repository.UploadLedger, cfg *config.Config, logger zerolog.Logger) error {
	maintenance := service.NewMaintenanceService(ledger, lock.NewNoOpLocker(), service.MaintenanceConfig{
		Retention: cfg.Cleanup.UsedRetention,
	}, logger)

	purged, err := maintenance.RunPurge(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d used ledger rows older than %s\n", purged, cfg.Cleanup.UsedRetention)
	return nil
}

func runOrphans(ctx context.Context, ledger repository.UploadLedger) error {
	unused, err := ledger.ListUnused(ctx)
	if err != nil {
		return err
	}
	for _, u := range unused {
		fmt.Printf("%s\t%s\n", u.UploadedAt.Format(time.RFC3339), u.Path)
	}
	fmt.Printf("%d unused uploads\n", len(unused))
	return nil
}

// runAudit reports blobs physically present under the uploads prefix
// that have no ledger row at all. These can only appear through
// out-of-band writes or historical data predating tracking.
func runAudit(ctx context.Context, ledger repository.UploadLedger, cfg *config.Config, logger zerolog.Logger) error {
	backend, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	objects, err := backend.List(ctx, storage.UploadsPrefix)
	if err != nil {
		return err
	}

	untracked := 0
	for _, obj := range objects {
		if _, err := ledger.Get(ctx, obj.Path); err != nil {
			fmt.Printf("%s\t%d\n", obj.Path, obj.Size)
			untracked++
		}
	}
	fmt.Printf("%d of %d stored uploads are untracked\n", untracked, len(objects))
	return nil
}

func openLedger(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UploadLedger, func() error, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewUploadLedger(db), db.Close, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUploadLedger(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %q", cfg.Database.Driver)
	}
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "filesystem":
		return storage.NewLocalBackend(cfg.DataDir, logger)
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Config{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			KeyPrefix:       cfg.KeyPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
