package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgoulah/usageledger/internal/config"
	"github.com/jgoulah/usageledger/internal/database"
	"github.com/jgoulah/usageledger/internal/evidence"
	"github.com/jgoulah/usageledger/internal/logging"
	"github.com/jgoulah/usageledger/internal/publisher"
	"github.com/jgoulah/usageledger/internal/reconcile"
	"github.com/jgoulah/usageledger/internal/storage"
	"github.com/jgoulah/usageledger/pkg/models"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "usageledger",
	Short: "Record monthly energy usage with its supporting evidence",
	Long: `UsageLedger keeps yearly energy usage entries per category in a local SQLite database.
Bills are prorated across calendar months and every record is linked to the
receipts, bills and data sheets that back it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path, preferring the flag over config
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetDatabase()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// app is everything a command needs to read or change entries
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *database.DB
	files      *storage.FileStore
	resolver   *evidence.Resolver
	reconciler *reconcile.Reconciler
	publisher  *publisher.Publisher
}

// openApp wires the database, blob store and reconciler. The MQTT
// publisher is connected only when withPublisher is set and MQTT is enabled.
func openApp(ctx context.Context, withPublisher bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	blobs, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		files:    storage.NewFileStore(db, blobs, logger),
		resolver: evidence.NewResolver(logger),
	}

	opts := reconcile.Options{
		Concurrency:    cfg.GetUploadConcurrency(),
		MaxBillingDays: cfg.GetMaxBillingDays(),
		Resolver:       a.resolver,
		Logger:         logger,
	}
	if withPublisher && cfg.MQTT.Enabled {
		pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix(), logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating publisher: %w", err)
		}
		a.publisher = pub
		opts.Notifier = publishedNotifier{pub: pub, db: db}
	}
	a.reconciler = reconcile.New(db, a.files, opts)

	return a, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.BlobStore, error) {
	switch cfg.GetStorageDriver() {
	case "dir":
		return storage.NewDirStore(cfg.GetStorageDir())
	case "minio":
		m := cfg.Storage.Minio
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:        m.Endpoint,
			AccessKeyID:     m.AccessKeyID,
			SecretAccessKey: m.SecretAccessKey,
			Bucket:          m.Bucket,
			Region:          m.Region,
			UseSSL:          m.UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to object storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (use dir or minio)", cfg.Storage.Driver)
	}
}

// publishedNotifier publishes a submitted entry and marks it published
type publishedNotifier struct {
	pub *publisher.Publisher
	db  *database.DB
}

func (n publishedNotifier) EntrySubmitted(ctx context.Context, e models.Entry) error {
	if err := n.pub.EntrySubmitted(ctx, e); err != nil {
		return err
	}
	return n.db.MarkPublished(ctx, e.ID)
}

// Close releases the database and broker connections
func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	a.db.Close()
	_ = a.logger.Sync()
}
