package backend

import (
	"context"
	"fmt"
	"log/slog"

	"casaspese/internal/config"
	"casaspese/internal/store/memory"
	"casaspese/internal/store/mongo"
	"casaspese/internal/store/sqlite"
)

// Factory creates stores based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the store named by cfg.DataBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &Result{Store: memory.New()}, nil

	case SQLiteBackend:
		st, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		f.logger.Info("Initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{
			Store:   st,
			Cleanup: func(context.Context) error { return st.Close() },
		}, nil

	case MongoBackend:
		st, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize mongo backend: %w", err)
		}
		f.logger.Info("Initialized mongo backend", "database", cfg.MongoDatabase)
		return &Result{
			Store:   st,
			Cleanup: st.Close,
			Run:     st.Run,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
}
