package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ssargent/freyjadoc/pkg/document"
	"github.com/ssargent/freyjadoc/pkg/model"
	"github.com/ssargent/freyjadoc/pkg/storage"
)

const defaultMaxBodyBytes = 1 << 20

// Server holds the API server state
type Server struct {
	db      *storage.DB
	catalog Catalog
	config  ServerConfig
	metrics *Metrics
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(db *storage.DB, catalog Catalog, config ServerConfig, metrics *Metrics, logger zerolog.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		db:      db,
		catalog: catalog,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// collection resolves the {model} URL parameter
func (s *Server) collection(r *http.Request) (*storage.Collection, error) {
	m, err := s.catalog.Model(chi.URLParam(r, "model"))
	if err != nil {
		return nil, err
	}
	// embedded-only types have no collection of their own
	if m.PrimaryKey() == nil {
		return nil, model.LookupFailed("%s is not stored on its own", m.QualifiedName())
	}
	return s.db.Collection(m)
}

// readDocument reads a JSON object request body
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (document.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, model.Validation("failed to read request body: %v", err)
	}
	if len(body) == 0 {
		return document.Document{}, nil
	}
	doc, err := document.Unmarshal(body)
	if err != nil {
		return nil, model.Validation("request body must be a JSON object: %v", err)
	}
	return doc, nil
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListModels godoc
//
//	@Summary		List collections
//	@Description	List the record types that can be stored
//	@Tags			records
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/ [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]interface{}{"collections": s.catalog.Collections()})
}

// handleList godoc
//
//	@Summary		List records
//	@Description	List every stored document of a record type
//	@Tags			records
//	@Produce		json
//	@Param			model	path		string	true	"Record type"
//	@Success		200		{object}	ListResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/{model} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, err := s.collection(r)
	if err != nil {
		sendRecordError(w, err)
		return
	}
	name := c.Model().QualifiedName()

	docs, err := c.Documents(r.Context())
	s.metrics.RecordDBOperation("list", name, err, time.Since(start))
	if err != nil {
		sendRecordError(w, err)
		return
	}

	out := make([]interface{}, len(docs))
	for i, doc := range docs {
		out[i] = doc
	}
	sendSuccess(w, ListResponse{Model: name, Count: len(out), Documents: out})
}

// handleCreate godoc
//
//	@Summary		Create a record
//	@Description	Store a new record; its primary key is generated when the type allows it
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			model	path		string					true	"Record type"
//	@Param			body	body		map[string]interface{}	true	"Record"
//	@Success		201		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Router			/{model} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.upsert(w, r, "")
}

// handlePut godoc
//
//	@Summary		Put a record
//	@Description	Create or update the record with the given primary key. Omitted attributes of an existing record keep their stored values.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			model	path		string					true	"Record type"
//	@Param			id		path		string					true	"Primary key"
//	@Param			body	body		map[string]interface{}	true	"Record"
//	@Success		200		{object}	APIResponse
//	@Success		201		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/{model}/{id} [put]
//	@Security		ApiKeyAuth
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		sendError(w, "Primary key is required", http.StatusBadRequest)
		return
	}
	s.upsert(w, r, id)
}

func (s *Server) upsert(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()
	c, err := s.collection(r)
	if err != nil {
		sendRecordError(w, err)
		return
	}
	name := c.Model().QualifiedName()
	pkName := c.Model().PrimaryKey().Attname()

	doc, err := s.readDocument(w, r)
	if err != nil {
		s.metrics.RecordDBOperation("put", name, err, time.Since(start))
		sendRecordError(w, err)
		return
	}
	if id != "" {
		if v, ok := doc[pkName]; ok && v != nil && fmt.Sprint(v) != id {
			err := model.Validation("body %s %v does not match %q", pkName, v, id)
			s.metrics.RecordDBOperation("put", name, err, time.Since(start))
			sendRecordError(w, err)
			return
		}
		doc[pkName] = id
	}

	rec, created, err := c.Upsert(r.Context(), doc)
	if err == nil {
		doc, err = c.Document(r.Context(), rec.PK())
	}
	s.metrics.RecordDBOperation("put", name, err, time.Since(start))
	if err != nil {
		s.logger.Debug().Err(err).Str("model", name).Msg("put rejected")
		sendRecordError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	sendSuccessStatus(w, doc, status)
}

// handleGet godoc
//
//	@Summary		Get a record
//	@Description	Retrieve the stored document of a record
//	@Tags			records
//	@Produce		json
//	@Param			model	path		string	true	"Record type"
//	@Param			id		path		string	true	"Primary key"
//	@Success		200		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/{model}/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, err := s.collection(r)
	if err != nil {
		sendRecordError(w, err)
		return
	}
	name := c.Model().QualifiedName()

	doc, err := c.Document(r.Context(), chi.URLParam(r, "id"))
	s.metrics.RecordDBOperation("get", name, err, time.Since(start))
	if err != nil {
		sendRecordError(w, err)
		return
	}
	sendSuccess(w, doc)
}

// handleDelete godoc
//
//	@Summary		Delete a record
//	@Description	Delete the record with the given primary key
//	@Tags			records
//	@Produce		json
//	@Param			model	path		string	true	"Record type"
//	@Param			id		path		string	true	"Primary key"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	APIResponse
//	@Router			/{model}/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c, err := s.collection(r)
	if err != nil {
		sendRecordError(w, err)
		return
	}
	name := c.Model().QualifiedName()

	err = c.Delete(r.Context(), chi.URLParam(r, "id"))
	s.metrics.RecordDBOperation("delete", name, err, time.Since(start))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("model", name).Msg("delete failed")
		}
		sendRecordError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Record deleted successfully"})
}
