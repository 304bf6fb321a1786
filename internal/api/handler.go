package api

import (
	"log/slog"

	"github.com/shaiso/Courier/internal/processor"
	"github.com/shaiso/Courier/internal/store"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	processors *processor.Registry
	stores     *store.Registry
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Processors *processor.Registry
	Stores     *store.Registry
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		processors: cfg.Processors,
		stores:     cfg.Stores,
		logger:     cfg.Logger,
	}
}
