package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/logger"
)

// errBodyTooLarge signals a request body over the configured limit.
var errBodyTooLarge = errors.New("request body too large")

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

type errorResponse struct {
	Error string `json:"error"`
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(errBodyTooLarge, http.StatusRequestEntityTooLarge, "Request body too large"),
		sentinelHandler(domain.ErrInvalidBody, http.StatusBadRequest, "Invalid request body"),
		sentinelHandler(domain.ErrMissingQuery, http.StatusBadRequest, "Missing query"),
		sentinelHandler(domain.ErrMissingText, http.StatusBadRequest, "Missing text"),
		sentinelHandler(domain.ErrQueryEmbeddingFailed, http.StatusInternalServerError, "Failed to get query embedding"),
		sentinelHandler(domain.ErrEmbeddingFailed, http.StatusInternalServerError, "Embedding failed"),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, message)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal error")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
