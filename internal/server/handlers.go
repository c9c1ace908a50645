package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/reference"
	"github.com/hyperjump/sworddrill/internal/search"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// versesData is the body of a reference lookup.
type versesData struct {
	Book            models.Book         `json:"book"`
	Reference       reference.Reference `json:"reference"`
	ReferenceString string              `json:"reference_string"`
	Verses          []models.Verse      `json:"verses"`
}

type match struct {
	Reference string `json:"reference"`
	Link      string `json:"link"`
	Text      string `json:"text"`
}

type searchData struct {
	Matches []match `json:"matches"`
}

type bookData struct {
	Book     models.Book `json:"book"`
	Chapters []int       `json:"chapters"`
}

// verseLink is the API path of a single verse, e.g. /api/Psalms.119.105.json.
func verseLink(book string, chapter, verse int) string {
	return fmt.Sprintf("/api/%s.%d.%d.json", url.PathEscape(book), chapter, verse)
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request carries one, and only then are its parameters still escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	raw := pathParam(r, "reference")
	citation, ok := strings.CutSuffix(raw, ".json")
	if !ok {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}

	ref, err := reference.Parse(citation)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.logger.Debug("reference request", zap.String("reference", citation))

	p, err := dispatch(r.Context(), s.pool, func(ctx context.Context) (*search.Passage, error) {
		return s.engine.Passage(ctx, ref, models.PlainText)
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if p.Empty() {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("'%s' was not found.", p.Reference.String()))
		return
	}
	s.respondJSON(w, http.StatusOK, versesData{
		Book:            p.Book,
		Reference:       p.Reference,
		ReferenceString: p.Reference.String(),
		Verses:          p.Verses,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.logger.Debug("search request", zap.String("query", q))

	res, err := dispatch(r.Context(), s.pool, func(ctx context.Context) (*search.LookupResult, error) {
		return s.engine.Lookup(ctx, q, models.PlainText)
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	data := searchData{Matches: []match{}}
	if p := res.Passage; p != nil {
		for _, v := range p.Verses {
			data.Matches = append(data.Matches, match{
				Reference: fmt.Sprintf("%s %d:%d", p.Book.Name, v.Chapter, v.Verse),
				Link:      verseLink(p.Book.Name, v.Chapter, v.Verse),
				Text:      v.Words,
			})
		}
	}
	for _, m := range res.Matches {
		data.Matches = append(data.Matches, match{
			Reference: fmt.Sprintf("%s %d:%d", m.Book.Name, m.Hit.Chapter, m.Hit.Verse),
			Link:      verseLink(m.Book.Name, m.Hit.Chapter, m.Hit.Verse),
			Text:      m.Hit.Words,
		})
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := dispatch(r.Context(), s.pool, s.engine.AllBooks)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"books": books})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "book")
	data, err := dispatch(r.Context(), s.pool, func(ctx context.Context) (*bookData, error) {
		b, chapters, err := s.engine.Book(ctx, name)
		if err != nil {
			return nil, err
		}
		return &bookData{Book: *b, Chapters: chapters}, nil
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusData struct {
	Books       int64  `json:"books"`
	Verses      int64  `json:"verses"`
	HTMLVerses  int64  `json:"html_verses"`
	IndexedDocs uint64 `json:"indexed_docs"`
	DiskBytes   int64  `json:"disk_usage_bytes,omitempty"`
	PoolSize    int    `json:"pool_size"`
	PoolRunning int    `json:"pool_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := dispatch(r.Context(), s.pool, func(ctx context.Context) (*statusData, error) {
		var st statusData
		var err error
		if st.Books, err = s.storage.CountBooks(ctx); err != nil {
			return nil, &models.StorageError{Op: "count books", Err: err}
		}
		if st.Verses, err = s.storage.CountVerses(ctx, models.PlainText); err != nil {
			return nil, &models.StorageError{Op: "count verses", Err: err}
		}
		if st.HTMLVerses, err = s.storage.CountVerses(ctx, models.HTML); err != nil {
			return nil, &models.StorageError{Op: "count html verses", Err: err}
		}
		if st.IndexedDocs, err = s.index.DocCount(); err != nil {
			return nil, &models.StorageError{Op: "index doc count", Err: err}
		}
		if n, err := storage.Footprint(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath); err == nil {
			st.DiskBytes = n
		}
		return &st, nil
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	st.PoolSize = s.pool.Cap()
	st.PoolRunning = s.pool.Running()
	s.respondJSON(w, http.StatusOK, st)
}

// respondEngineError maps the error taxonomy onto HTTP statuses. Storage
// faults get a generic message and an incident id that is logged with the cause.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	var (
		invalid  *models.InvalidReferenceError
		notFound *models.BookNotFoundError
	)
	switch {
	case errors.As(err, &invalid):
		s.logger.Debug("invalid reference", zap.String("reference", invalid.Reference))
		s.respondError(w, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &notFound):
		s.respondError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondError(w, http.StatusServiceUnavailable, "request timed out")
	case errors.Is(err, errPoolClosed), errors.Is(err, errPoolBusy):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		id := uuid.New().String()
		s.logger.Error("request failed", zap.String("error_id", id), zap.Error(err), zap.NamedError("cause", errors.Unwrap(err)))
		message := models.ErrStorage.Error()
		if !errors.Is(err, models.ErrStorage) {
			message = "internal error"
		}
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": message, "error_id": id})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
