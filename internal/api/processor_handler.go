package api

import (
	"context"
	"net/http"

	"github.com/shaiso/Courier/internal/processor"
)

// ListProcessors возвращает список процессоров.
// GET /api/v1/processors
func (h *Handler) ListProcessors(w http.ResponseWriter, r *http.Request) {
	processors := h.processors.List()

	result := make([]ProcessorResponse, len(processors))
	for i, p := range processors {
		result[i] = NewProcessorResponse(p, h.processorDepth(r.Context(), p))
	}

	List(w, result, len(result))
}

// GetProcessor возвращает процессор по имени.
// GET /api/v1/processors/{name}
func (h *Handler) GetProcessor(w http.ResponseWriter, r *http.Request) {
	p, err := h.processors.Get(r.PathValue("name"))
	if HandleLookupError(w, h.logger, err, "message processor not found") {
		return
	}

	Success(w, NewProcessorResponse(p, h.processorDepth(r.Context(), p)))
}

// ActivateProcessor возобновляет доставку сообщений процессором.
// POST /api/v1/processors/{name}/activate
func (h *Handler) ActivateProcessor(w http.ResponseWriter, r *http.Request) {
	p, err := h.processors.Get(r.PathValue("name"))
	if HandleLookupError(w, h.logger, err, "message processor not found") {
		return
	}

	p.Activate()

	Success(w, NewProcessorResponse(p, h.processorDepth(r.Context(), p)))
}

// DeactivateProcessor приостанавливает доставку сообщений процессором.
// POST /api/v1/processors/{name}/deactivate
func (h *Handler) DeactivateProcessor(w http.ResponseWriter, r *http.Request) {
	p, err := h.processors.Get(r.PathValue("name"))
	if HandleLookupError(w, h.logger, err, "message processor not found") {
		return
	}

	p.Deactivate()

	Success(w, NewProcessorResponse(p, h.processorDepth(r.Context(), p)))
}

// processorDepth возвращает глубину store процессора, -1 при ошибке.
func (h *Handler) processorDepth(ctx context.Context, p *processor.Processor) int {
	depth, err := p.Depth(ctx)
	if err != nil {
		h.logger.Warn("failed to read store depth",
			"processor", p.Name(),
			"error", err,
		)
		return -1
	}
	return depth
}
