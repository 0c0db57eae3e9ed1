// -----------------------------------------------------------------------
// Last Modified: Thursday, 9th October 2025 8:53:55 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
	"github.com/docuscan/taxpipeline/internal/services/notify"
)

var validate = validator.New()

// upgrader accepts any origin for local development, matching the
// corsMiddleware's wide-open policy for the rest of the API.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// openValidator is a notify.TokenValidator stand-in: authentication and
// authorization policy are an explicit external collaborator this module
// does not implement, so any non-empty bearer token is accepted and used
// verbatim as the session's user identifier.
type openValidator struct{}

func (openValidator) Validate(token string) (string, error) {
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

var errEmptyToken = &emptyTokenError{}

type emptyTokenError struct{}

func (*emptyTokenError) Error() string { return "empty token" }

// setupRoutes configures every §6.1 ingress contract plus the §4.10
// notification session endpoint.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/batches", s.handleBatchCollection)
	mux.HandleFunc("/api/batches/", s.handleBatchRoutes)
	mux.HandleFunc("/api/results/", s.handleResultRoutes)
	mux.HandleFunc("/ws", s.handleNotificationSession)

	return mux
}

// handleBatchCollection dispatches list_batches (GET) and submit_batch
// (POST) on the collection endpoint.
func (s *Server) handleBatchCollection(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.listBatches, s.submitBatch)
}

// handleBatchRoutes dispatches every /api/batches/{id}... path-suffix
// route: get_batch, cancel_batch, get_results, and export_batch.
func (s *Server) handleBatchRoutes(w http.ResponseWriter, r *http.Request) {
	matched := RouteByPathSuffix(w, r, "/api/batches/", []PathSuffixRouter{
		{Suffix: "/cancel", Handler: s.cancelBatch},
		{Suffix: "/results", Handler: s.getResults},
		{Suffix: "/export", Handler: s.exportBatch},
		{Suffix: "", Handler: s.getBatch},
	})
	if !matched {
		http.NotFound(w, r)
	}
}

// handleResultRoutes dispatches update_result (PATCH/PUT) and
// export_single on the /api/results/{id}... path.
func (s *Server) handleResultRoutes(w http.ResponseWriter, r *http.Request) {
	matched := RouteByPathSuffix(w, r, "/api/results/", []PathSuffixRouter{
		{Suffix: "/export", Handler: s.exportSingle},
		{Suffix: "", Handler: s.updateResult},
	})
	if !matched {
		http.NotFound(w, r)
	}
}

// resourceID extracts the path segment between prefix and the given
// trailing suffix (which may be empty for a bare /{prefix}/{id} path).
func resourceID(path, prefix, suffix string) string {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.TrimSuffix(trimmed, suffix)
	return strings.Trim(trimmed, "/")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a models.ErrorKind to the HTTP status §6.1 callers
// expect: validation is a 400, cancelled is a 409, and every other kind is
// a 500.
func writeError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case models.ErrorKindValidation:
		status = http.StatusBadRequest
	case models.ErrorKindCancelled:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// submitBatch implements submit_batch(owner, files[]) -> {batch_id}.
func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	var descriptor models.BatchDescriptor
	if err := json.NewDecoder(r.Body).Decode(&descriptor); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if err := validate.Struct(&descriptor); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	batchID, err := s.app.Scheduler.Submit(r.Context(), &descriptor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
}

// getBatch implements get_batch(batch_id) -> snapshot.
func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/batches/", "")
	snapshot, err := s.app.Scheduler.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// listBatches implements list_batches(owner, [limit, offset]) -> page of
// batches. Default pagination returns the first 10 items.
func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	opts := interfaces.ListOptions{
		Owner:  r.URL.Query().Get("owner"),
		Limit:  10,
		Offset: 0,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	batches, err := s.app.StorageManager.BatchStorage().ListBatches(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"batches": batches})
}

// cancelBatch implements cancel_batch(batch_id) -> idempotent.
func (s *Server) cancelBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := resourceID(r.URL.Path, "/api/batches/", "/cancel")
	if err := s.app.Scheduler.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancel_requested"})
}

// getResults implements get_results(batch_id) -> list of results.
func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/batches/", "/results")
	results, err := s.app.Scheduler.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// updateResult implements update_result(result_id, patch): applies the
// correction and emits the audit event the patch must carry per §6.1.
func (s *Server) updateResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := resourceID(r.URL.Path, "/api/results/", "")

	var patch models.ResultPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	patch.ResultID = id
	if err := validate.Struct(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.app.StorageManager.ScanResultStorage().ApplyPatch(r.Context(), &patch)
	if err != nil {
		writeError(w, err)
		return
	}

	actor := r.Header.Get("X-User-ID")
	auditEvent := &models.AuditEvent{
		Timestamp: time.Now(),
		EventType: models.AuditEventDataAccess,
		Actor:     actor,
		Action:    "update_result",
		Status:    models.AuditStatusSuccess,
		IPAddress: r.RemoteAddr,
		Details:   map[string]interface{}{"result_id": id, "fields": patch.Fields},
	}
	if err := s.app.StorageManager.AuditStorage().Append(r.Context(), auditEvent); err != nil {
		s.app.Logger.Warn().Err(err).Str("result_id", id).Msg("failed to append audit event for update_result")
	}
	s.app.EventService.Publish(r.Context(), interfaces.Event{Type: interfaces.EventAuditRecorded, Payload: auditEvent})

	writeJSON(w, http.StatusOK, result)
}

// exportSingle implements export_single(result_id, format) -> binary
// artifact.
func (s *Server) exportSingle(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/results/", "/export")
	result, err := s.app.StorageManager.ScanResultStorage().GetResult(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	exporter := s.app.Exporters.ForType(result.DocumentType)
	artifact, err := s.renderArtifact(r, exporter, []*models.ScanResult{result}, result)
	if err != nil {
		writeError(w, err)
		return
	}
	writeArtifact(w, artifact)
}

// exportBatch implements export_batch(batch_id, format) -> binary
// artifact covering every result in the batch.
func (s *Server) exportBatch(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r.URL.Path, "/api/batches/", "/export")
	results, err := s.app.Scheduler.Results(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(results) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch has no results"})
		return
	}

	exporter := s.app.Exporters.ForType(results[0].DocumentType)
	artifact, err := s.renderArtifact(r, exporter, results, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeArtifact(w, artifact)
}

// renderArtifact picks RenderSpreadsheet or RenderReport by the ?format=
// query parameter (default: spreadsheet). single is nil for export_batch.
func (s *Server) renderArtifact(r *http.Request, exporter interfaces.Exporter, results []*models.ScanResult, single *models.ScanResult) (*models.ExportArtifact, error) {
	format := r.URL.Query().Get("format")
	if format == "report" {
		if single == nil {
			single = results[0]
		}
		return exporter.RenderReport(single)
	}
	return exporter.RenderSpreadsheet(results)
}

func writeArtifact(w http.ResponseWriter, artifact *models.ExportArtifact) {
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+artifact.Filename+"\"")
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Bytes)
}

// handleNotificationSession implements §4.10's bidirectional session
// endpoint: upgrade, auth handshake, register against the topic named by
// the batch_id/file_id query parameter, replay the last snapshot, then let
// the session's own read/write/heartbeat loops take over.
func (s *Server) handleNotificationSession(w http.ResponseWriter, r *http.Request) {
	topic := notificationTopic(r)
	if topic == "" {
		http.Error(w, "batch_id or file_id query parameter required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.app.Logger.Warn().Err(err).Msg("failed to upgrade notification session")
		return
	}

	userID, err := notify.Handshake(conn, openValidator{})
	if err != nil {
		s.app.Logger.Warn().Err(err).Msg("notification session auth handshake failed")
		return
	}

	sessionID := userID + ":" + topic
	session := notify.NewSession(sessionID, userID, conn, s.app.Logger, func(closedID string) {
		s.app.Notifications.Unregister(closedID)
	})

	if err := s.app.Notifications.Register(session, []string{topic}); err != nil {
		s.app.Logger.Warn().Err(err).Msg("failed to register notification session")
		session.Close(websocket.CloseInternalServerErr, "registration failed")
		return
	}

	if last, ok := s.app.Notifications.Snapshot(topic); ok {
		session.Send(last)
	}
}

func notificationTopic(r *http.Request) string {
	if id := r.URL.Query().Get("batch_id"); id != "" {
		return "batch:" + id
	}
	if id := r.URL.Query().Get("file_id"); id != "" {
		return "file:" + id
	}
	return ""
}
