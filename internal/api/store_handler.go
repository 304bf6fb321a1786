package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Courier/internal/domain"
	"github.com/shaiso/Courier/internal/store"
)

// ListStores возвращает список store'ов с глубиной очередей.
// GET /api/v1/stores
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	names := h.stores.Names()

	result := make([]StoreResponse, 0, len(names))
	for _, name := range names {
		s, err := h.stores.Get(name)
		if err != nil {
			continue
		}
		result = append(result, StoreResponse{
			Name:  name,
			Depth: h.storeDepth(r, s),
		})
	}

	List(w, result, len(result))
}

// GetStore возвращает store по имени.
// GET /api/v1/stores/{name}
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.stores.Get(r.PathValue("name"))
	if HandleLookupError(w, h.logger, err, "message store not found") {
		return
	}

	Success(w, StoreResponse{
		Name:  s.Name(),
		Depth: h.storeDepth(r, s),
	})
}

// EnqueueMessage кладёт сообщение в store.
// POST /api/v1/stores/{name}/messages
func (h *Handler) EnqueueMessage(w http.ResponseWriter, r *http.Request) {
	s, err := h.stores.Get(r.PathValue("name"))
	if HandleLookupError(w, h.logger, err, "message store not found") {
		return
	}

	var req EnqueueMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	msg := &domain.Message{
		Endpoint:    req.Endpoint,
		ContentType: req.ContentType,
		Headers:     req.Headers,
		Body:        []byte(req.Body),
	}
	if msg.ContentType == "" && len(msg.Body) > 0 {
		msg.ContentType = "application/json"
	}

	producer, err := s.Producer()
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	if err := producer.Enqueue(r.Context(), msg); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, NewMessageResponse(s.Name(), msg))
}

// storeDepth возвращает глубину store, -1 при ошибке.
func (h *Handler) storeDepth(r *http.Request, s store.Store) int {
	depth, err := s.Depth(r.Context())
	if err != nil {
		h.logger.Warn("failed to read store depth",
			"store", s.Name(),
			"error", err,
		)
		return -1
	}
	return depth
}
