package requestq

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dnstools/requestq/core"
	"github.com/dnstools/requestq/history"
	"github.com/dnstools/requestq/item"
	amqpnotifier "github.com/dnstools/requestq/notifiers/amqp"
	"github.com/dnstools/requestq/notifiers/logging"
	filestore "github.com/dnstools/requestq/persistence/file"
	redisstore "github.com/dnstools/requestq/persistence/redis"
	"github.com/dnstools/requestq/persistence/sqlstore"
	"github.com/dnstools/requestq/pkg/config"
	"github.com/dnstools/requestq/registry"
)

var (
	engine         *core.Engine
	settings       *config.Config
	closers        []func() error
	globalRegistry = registry.NewRegistry()
	initMutex      sync.Mutex
	initialized    bool
)

// SetConfig sets the configuration used by Init. Must be called before
// Init or Work; has no effect once the engine is initialized.
func SetConfig(cfg *config.Config) {
	initMutex.Lock()
	defer initMutex.Unlock()
	settings = cfg
}

// Init builds the package-level engine from the configured settings.
// Safe to call more than once.
func Init() error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		return nil
	}

	cfg := settings
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	configureLogging(cfg.Logging)

	options := []core.EngineOption{
		core.WithHistoryLimit(cfg.Engine.HistoryLimit),
		core.WithMaxRetries(cfg.Engine.MaxRetries),
		core.WithCallbackBuffer(cfg.Engine.CallbackBuffer),
		core.WithRegistry(globalRegistry),
	}
	if cfg.Engine.EmptyWait > 0 {
		options = append(options, core.WithEmptyWait(cfg.Engine.EmptyWait.Std()))
	}
	if cfg.Engine.StopTimeout > 0 {
		options = append(options, core.WithStopTimeout(cfg.Engine.StopTimeout.Std()))
	}
	if cfg.Engine.RetrySlack > 0 {
		options = append(options, core.WithRetrySlack(cfg.Engine.RetrySlack.Std()))
	}

	if cfg.Persistence.Enabled {
		persister, err := buildPersister(cfg.Persistence)
		if err != nil {
			return fmt.Errorf("failed to create persister: %w", err)
		}
		options = append(options, core.WithPersister(persister))
	}

	if cfg.Notifiers.Logging {
		options = append(options, core.WithNotifier(logging.NewNotifier(nil)))
	}
	if cfg.Notifiers.AMQP.Enabled {
		notifier := amqpnotifier.NewNotifier(amqpnotifier.Options{
			URI:              cfg.Notifiers.AMQP.URI,
			Exchange:         cfg.Notifiers.AMQP.Exchange,
			ExchangeType:     cfg.Notifiers.AMQP.ExchangeType,
			RoutingKeyPrefix: cfg.Notifiers.AMQP.RoutingKeyPrefix,
		})
		if err := notifier.Connect(context.Background()); err != nil {
			return fmt.Errorf("failed to connect AMQP notifier: %w", err)
		}
		closers = append(closers, notifier.Close)
		options = append(options, core.WithNotifier(notifier))
	}

	engine = core.NewEngine(options...)
	settings = cfg
	initialized = true
	return nil
}

// buildPersister creates the configured history persister.
func buildPersister(cfg config.PersistenceConfig) (history.Persister, error) {
	switch cfg.Type {
	case "file":
		return filestore.NewStore(cfg.Path), nil
	case "redis":
		options := redisstore.DefaultOptions()
		options.URI = cfg.URI
		if cfg.Key != "" {
			options.Key = cfg.Key
		}
		store := redisstore.NewStore(options)
		if err := store.Connect(context.Background()); err != nil {
			return nil, err
		}
		closers = append(closers, store.Close)
		return store, nil
	case "sql":
		db, err := sql.Open("mysql", cfg.URI)
		if err != nil {
			return nil, err
		}
		store := sqlstore.NewStore(db, cfg.Table)
		if err := store.EnsureSchema(); err != nil {
			db.Close()
			return nil, err
		}
		closers = append(closers, db.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}

// Work initializes the engine, starts processing, and blocks until a
// shutdown signal arrives.
func Work() error {
	if err := Init(); err != nil {
		return err
	}
	defer Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := signals()
	go func() {
		<-quit
		cancel()
	}()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return engine.Stop()
}

// Start initializes and starts the engine without signal handling.
func Start(ctx context.Context) error {
	if err := Init(); err != nil {
		return err
	}
	return engine.Start(ctx)
}

// Close stops the engine and releases its resources
func Close() {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized && engine != nil {
		engine.Stop()
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				slog.Warn("Failed to close resource", "error", err)
			}
		}
		closers = nil
		initialized = false
	}
}

// Enqueue creates an item for action and adds it to the queue.
func Enqueue(action string, op item.Operation, opts ...item.Option) (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return engine.Enqueue(item.New(action, op, opts...))
}

// Register adds a named operation so items reloaded from persisted
// history can be retried by action name.
func Register(action string, op item.Operation) error {
	return globalRegistry.Register(action, op)
}

// Engine returns the package-level engine, initializing it on demand.
func Engine() (*core.Engine, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return engine, nil
}

// configureLogging sets the process default logger from config.
func configureLogging(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
