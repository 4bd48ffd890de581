package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/did-method-plc/go-diddoc"
	"github.com/did-method-plc/go-diddoc/docstore"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// upper bound on PUT request bodies
const maxDocumentSize = 1 << 20

// PutResponse is the response for PUT /{did}
type PutResponse struct {
	DID       string    `json:"did"`
	CID       string    `json:"cid"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListResponse is the response for GET /_list
type ListResponse struct {
	Subjects []string `json:"subjects"`
	Cursor   string   `json:"cursor,omitempty"`
}

// Server holds the HTTP server and its dependencies
type Server struct {
	store  docstore.DocStore
	addr   string
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(store docstore.DocStore, addr string, logger *slog.Logger) *Server {
	return &Server{
		store:  store,
		addr:   addr,
		logger: logger.With("component", "server"),
	}
}

// Handler returns the routes, without instrumentation
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_health", s.handleHealth)
	mux.HandleFunc("GET /_list", s.handleList)
	mux.HandleFunc("GET /{did}", s.handleGetDoc)
	mux.HandleFunc("PUT /{did}", s.handlePutDoc)
	mux.HandleFunc("DELETE /{did}", s.handleDeleteDoc)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return mux
}

// Run starts the HTTP server (blocking)
func (s *Server) Run() error {
	handler := otelhttp.NewHandler(s.Handler(), "")

	s.logger.Info("http server listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, handler)
}

// handleIndex serves the index page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "hello diddoc store\n")
}

// handleHealth handles GET /_health - returns version information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": versioninfo.Short(),
	})
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// handleGetDoc handles GET /{did} - returns the stored document in canonical form
func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	did := r.PathValue("did")

	entry, err := s.store.GetDoc(r.Context(), diddoc.Subject(did))
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error fetching document: %v", err), http.StatusInternalServerError)
		return
	}
	if entry == nil {
		writeJSONError(w, fmt.Sprintf("DID not registered: %s", did), http.StatusNotFound)
		return
	}

	b, err := entry.Doc.Encode()
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error encoding document: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/did+json")
	w.Header().Set("ETag", strconv.Quote(entry.CID))
	w.Write(b)
}

// handlePutDoc handles PUT /{did} - stores a document, whose id must match the path
func (s *Server) handlePutDoc(w http.ResponseWriter, r *http.Request) {
	did := r.PathValue("did")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error reading request body: %v", err), http.StatusBadRequest)
		return
	}

	doc, err := diddoc.Parse(body)
	if err != nil {
		var de *diddoc.DecodeError
		if errors.As(err, &de) {
			s.logger.Debug("rejected document", "did", did, "entity", de.Entity, "path", de.Path, "field", de.Field, "err", de.Err)
		}
		writeJSONError(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
		return
	}
	if doc.Subject().String() != did {
		writeJSONError(w, fmt.Sprintf("document id %q does not match path %q", doc.Subject(), did), http.StatusBadRequest)
		return
	}

	entry, err := s.store.PutDoc(r.Context(), doc)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error storing document: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.Info("stored document", "did", did, "cid", entry.CID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PutResponse{
		DID:       entry.Subject.String(),
		CID:       entry.CID,
		UpdatedAt: entry.UpdatedAt,
	})
}

// handleDeleteDoc handles DELETE /{did}
func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	did := r.PathValue("did")

	err := s.store.DeleteDoc(r.Context(), diddoc.Subject(did))
	if errors.Is(err, docstore.ErrNotFound) {
		writeJSONError(w, fmt.Sprintf("DID not registered: %s", did), http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error deleting document: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.Info("deleted document", "did", did)
	w.WriteHeader(http.StatusNoContent)
}

// handleList handles GET /_list?after=&limit= - pages through stored subjects
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSONError(w, fmt.Sprintf("invalid limit: %s", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	subjects, err := s.store.ListSubjects(r.Context(), q.Get("after"), limit)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("error listing documents: %v", err), http.StatusInternalServerError)
		return
	}

	resp := ListResponse{Subjects: make([]string, 0, len(subjects))}
	for _, subj := range subjects {
		resp.Subjects = append(resp.Subjects, subj.String())
	}
	if len(resp.Subjects) > 0 {
		resp.Cursor = resp.Subjects[len(resp.Subjects)-1]
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		writeJSONError(w, fmt.Sprintf("error encoding response: %v", err), http.StatusInternalServerError)
		return
	}
}
