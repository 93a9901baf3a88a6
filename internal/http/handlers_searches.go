package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/service"
)

// maxResultWaitSeconds caps how long a single result request may long-poll
// before the caller has to come back. Keeps handler goroutines bounded.
const maxResultWaitSeconds = 60

// SearchHandlers contains HTTP handlers for search submission and retrieval.
type SearchHandlers struct {
	Svc    *service.SearchService
	Logger *slog.Logger
}

// Submit handles POST /api/searches. Accepted searches run asynchronously;
// the response carries the job id to poll with.
func (h *SearchHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// Status handles GET /api/searches/{id}/status. Non-consuming: reports the
// observable state without touching the result row.
func (h *SearchHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// Result handles GET /api/searches/{id}/result. A 200 response consumes the
// result: the row is deleted and a repeat request returns 404. An optional
// ?wait=N query long-polls up to N seconds while the search is running.
func (h *SearchHandlers) Result(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	waitSeconds := parseIntQuery(r, "wait", 0)
	if waitSeconds > maxResultWaitSeconds {
		waitSeconds = maxResultWaitSeconds
	}
	wait := time.Duration(waitSeconds) * time.Second

	outcome, err := h.Svc.Result(r.Context(), id, wait)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if outcome.Result == nil {
		WriteJSON(w, http.StatusAccepted, outcome.Status)
		return
	}

	WriteJSON(w, http.StatusOK, resultResponse(outcome.Result))
}

// Cancel handles POST /api/searches/{id}/cancel. Cancelling a search that
// already reached a terminal state reports 404, same as an unknown id.
func (h *SearchHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.Svc.Cancel(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// Stats handles GET /api/searches/stats.
func (h *SearchHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// searchResultBody is the consuming result representation. Either payload or
// error is present, mirroring the stored row.
type searchResultBody struct {
	JobID       string      `json:"job_id"`
	Payload     interface{} `json:"payload,omitempty"`
	Error       *string     `json:"error,omitempty"`
	CompletedAt time.Time   `json:"completed_at"`
}

func resultResponse(res *model.SearchResult) searchResultBody {
	body := searchResultBody{
		JobID:       res.JobID,
		Error:       res.Error,
		CompletedAt: res.CompletedAt,
	}
	if len(res.Payload) > 0 {
		body.Payload = res.Payload
	}
	return body
}

// writeServiceError maps typed service errors onto HTTP statuses.
func (h *SearchHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForError(err)
	if code == http.StatusInternalServerError && h.Logger != nil {
		h.Logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: string(apperrors.GetCode(err)), Err: err})
}

func statusForError(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsCapacity(err):
		return http.StatusTooManyRequests
	case apperrors.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
