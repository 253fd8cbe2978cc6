package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/KaramelBytes/listings-eda/internal/analysis"
	"github.com/KaramelBytes/listings-eda/internal/chart"
	"github.com/KaramelBytes/listings-eda/internal/cleaner"
	"github.com/KaramelBytes/listings-eda/internal/filter"
	"github.com/KaramelBytes/listings-eda/internal/loader"
)

type ctxKey string

const datasetKey ctxKey = "dataset"

const (
	defaultViewLimit = 100
	maxViewLimit     = 10000
	multipartMemory  = 32 << 20
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":   "ok",
		"datasets": s.datasets.len(),
		"loader":   s.loader.Stats(),
	})
}

// Source is a configured data path and whether it exists on disk.
type Source struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func (s *Server) sources(w http.ResponseWriter, r *http.Request) {
	out := make([]Source, 0, len(s.cfg.DataPaths))
	first := ""
	for _, p := range s.cfg.DataPaths {
		_, err := os.Stat(p)
		out = append(out, Source{Path: p, Exists: err == nil})
		if err == nil && first == "" {
			first = p
		}
	}
	render.JSON(w, r, map[string]interface{}{"sources": out, "default": first})
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"datasets": s.datasets.list()})
}

// upload accepts a multipart "file" field or the raw request body.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.UploadMaxBytes)
	var (
		name string
		data []byte
		err  error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		name, data, err = readMultipart(r)
	} else {
		name = r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(w, r, NewAPIErrorWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				"Upload exceeds the configured limit", tooLarge.Limit))
			return
		}
		renderError(w, r, InvalidRequestWithError(err))
		return
	}
	s.register(w, r, loader.FromBytes(name, data))
}

func readMultipart(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", nil, err
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(hdr.Filename), data, nil
}

type pathRequest struct {
	Path string `json:"path" validate:"required"`
}

func (s *Server) loadPath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, InvalidRequestWithError(err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		renderError(w, r, validationFailure(err))
		return
	}
	want := filepath.Clean(req.Path)
	allowed := false
	for _, p := range s.cfg.DataPaths {
		if filepath.Clean(p) == want {
			allowed = true
			break
		}
	}
	if !allowed {
		renderError(w, r, ErrPathNotAllowed)
		return
	}
	s.register(w, r, loader.FromPath(want))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, src loader.Source) {
	raw, err := s.loader.Load(src)
	if err != nil {
		s.logger.WarnContext(r.Context(), "dataset load failed", "source", src.String(), "error", err)
		renderError(w, r, readFailure(err))
		return
	}
	rules := s.cfg.Rules
	if rules.FillValue == "" {
		rules = cleaner.DefaultRules()
	}
	ds := s.datasets.add(src.Key(), src.Name, cleaner.CleanWith(raw, rules), s.cfg.SliderCap, s.cfg.DefaultPriceMax)
	s.logger.InfoContext(r.Context(), "dataset registered", "id", ds.ID, "name", ds.Name, "rows", ds.Rows)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ds)
}

func (s *Server) datasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ds, ok := s.datasets.get(id)
		if !ok {
			renderError(w, r, NotFoundError("dataset "+id))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), datasetKey, ds)))
	})
}

func datasetFrom(r *http.Request) *Dataset {
	ds, _ := r.Context().Value(datasetKey).(*Dataset)
	return ds
}

// deleteDataset drops the dataset and its cached parse so the next load of
// the same source reads it again.
func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	ds := datasetFrom(r)
	if key, ok := s.datasets.remove(ds.ID); ok {
		s.loader.Invalidate(key)
	}
	s.logger.InfoContext(r.Context(), "dataset removed", "id", ds.ID, "name", ds.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	ds := datasetFrom(r)
	render.JSON(w, r, map[string]interface{}{
		"options":        ds.Options,
		"default_filter": ds.Default,
		"full_filter":    ds.Options.Full(),
	})
}

// decodeSpec decodes a partial filter over the dataset default. Omitted
// fields keep their default; an explicit [] selects nothing.
func (s *Server) decodeSpec(r *http.Request, ds *Dataset) (filter.Spec, *APIError) {
	spec := ds.Default
	spec.RoomTypes = append([]string{}, spec.RoomTypes...)
	spec.Boroughs = append([]string{}, spec.Boroughs...)
	if r.Body != nil {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
			return spec, InvalidRequestWithError(err)
		}
	}
	if err := s.validate.Struct(spec); err != nil {
		return spec, validationFailure(err)
	}
	return spec, nil
}

func (s *Server) summarize(r *http.Request) (*analysis.Dashboard, *APIError) {
	ds := datasetFrom(r)
	spec, apiErr := s.decodeSpec(r, ds)
	if apiErr != nil {
		return nil, apiErr
	}
	start := time.Now()
	d := analysis.Summarize(ds.Name, ds.clean, spec, s.cfg.Settings)
	s.metrics.dashboard.Observe(time.Since(start).Seconds())
	return d, nil
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, apiErr := s.summarize(r)
	if apiErr != nil {
		renderError(w, r, apiErr)
		return
	}
	render.JSON(w, r, d)
}

// ViewResponse is a page of filtered rows.
type ViewResponse struct {
	TotalRows   int                      `json:"total_rows"`
	VisibleRows int                      `json:"visible_rows"`
	Returned    int                      `json:"returned"`
	Filter      filter.Spec              `json:"filter"`
	Records     []map[string]interface{} `json:"records"`
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	limit := defaultViewLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > maxViewLimit {
			renderError(w, r, ErrValidation("limit", "must be an integer between 1 and "+strconv.Itoa(maxViewLimit)))
			return
		}
		limit = n
	}
	ds := datasetFrom(r)
	spec, apiErr := s.decodeSpec(r, ds)
	if apiErr != nil {
		renderError(w, r, apiErr)
		return
	}
	v := filter.Apply(ds.clean, spec)
	page := v.Head(limit)
	render.JSON(w, r, ViewResponse{
		TotalRows:   ds.Rows,
		VisibleRows: v.Len(),
		Returned:    page.Len(),
		Filter:      spec,
		Records:     page.Records(),
	})
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	kind, err := chart.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		renderError(w, r, ErrValidation("kind", err.Error()))
		return
	}
	d, apiErr := s.summarize(r)
	if apiErr != nil {
		renderError(w, r, apiErr)
		return
	}
	var opts chart.Options
	opts.Width, _ = strconv.Atoi(r.URL.Query().Get("width"))
	opts.Height, _ = strconv.Atoi(r.URL.Query().Get("height"))

	var buf bytes.Buffer
	if err := chart.Render(&buf, kind, d, opts); err != nil {
		var ue *chart.UnavailableError
		if errors.As(err, &ue) {
			renderError(w, r, NewAPIErrorWithDetails(http.StatusUnprocessableEntity, "CHART_UNAVAILABLE", ue.Error(), string(kind)))
			return
		}
		s.logger.ErrorContext(r.Context(), "chart render failed", "kind", kind, "error", err)
		renderError(w, r, ErrInternalServer)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
