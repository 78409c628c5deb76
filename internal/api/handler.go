package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/etabench/etabench/internal/aggregate"
	"github.com/etabench/etabench/internal/catalog"
	"github.com/etabench/etabench/internal/classify"
	"github.com/etabench/etabench/internal/eta"
	"github.com/etabench/etabench/internal/ingest"
	"github.com/etabench/etabench/internal/metrics"
	"github.com/etabench/etabench/internal/store"
)

// maxCSVUpload bounds the in-memory portion of a multipart CSV upload.
const maxCSVUpload = 32 << 20 // 32 MiB

// Date presets accepted by etaRequest.Preset.
const (
	PresetLast7Days  = "LAST_7_DAYS"
	PresetLast30Days = "LAST_30_DAYS"
)

// RecordFinder is the document-store boundary the handler depends on. The
// concrete implementation is store.Mongo; tests substitute a fake.
type RecordFinder interface {
	FindRange(ctx context.Context, q store.Query) ([]ingest.RawRow, error)
	Collection() string
}

// Options wires a Handler. Finder may be nil when the document store is
// unreachable; store-backed endpoints then answer 503 while CSV uploads and
// catalog analysis keep working.
type Options struct {
	Finder  RecordFinder
	Catalog *catalog.Catalog
	Metrics *metrics.Set

	// Threshold returns the current classification threshold; it is a
	// function so config hot-reload takes effect per request.
	Threshold func() float64

	// DefaultComparison is the provider compared when a request names none.
	DefaultComparison eta.Provider

	// Auth settings; zero value disables authentication.
	AuthMode   string
	AuthHeader string
	AuthKey    func() string
}

// Handler is the HTTP handler for all /api/* endpoints.
type Handler struct {
	finder     RecordFinder
	catalog    *catalog.Catalog
	metrics    *metrics.Set
	threshold  func() float64
	comparison eta.Provider
	router     *mux.Router
	started    time.Time
	now        func() time.Time // injectable for deterministic tests
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		finder:     opts.Finder,
		catalog:    opts.Catalog,
		metrics:    opts.Metrics,
		threshold:  opts.Threshold,
		comparison: opts.DefaultComparison,
		router:     mux.NewRouter(),
		started:    time.Now(),
		now:        time.Now,
	}
	if h.threshold == nil {
		h.threshold = func() float64 { return classify.DefaultThreshold }
	}
	if h.comparison == "" {
		h.comparison = eta.ProviderMappls
	}

	key := opts.AuthKey
	if key == nil {
		key = func() string { return "" }
	}
	h.router.Use(APIKeyMiddleware(opts.AuthMode, opts.AuthHeader, key))

	h.router.HandleFunc("/api/eta", h.queryEta).Methods(http.MethodPost)
	h.router.HandleFunc("/api/sources/csv", h.uploadCSV).Methods(http.MethodPost)
	h.router.HandleFunc("/api/sources/mongo", h.importMongo).Methods(http.MethodPost)
	h.router.HandleFunc("/api/sources", h.listSources).Methods(http.MethodGet)
	h.router.HandleFunc("/api/sources/{id}", h.deleteSource).Methods(http.MethodDelete)
	h.router.HandleFunc("/api/analysis", h.analysis).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// queryEta serves POST /api/eta — a range query against the document store,
// returning either classified records ("full") or rollups ("aggregated").
func (h *Handler) queryEta(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEtaRequest(r.Body)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, err := h.resolveComparison(req.Comparison)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Mode != "" && req.Mode != "full" && req.Mode != "aggregated" {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("mode %q unknown: want full|aggregated", req.Mode))
		return
	}
	if h.finder == nil {
		jsonErr(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}

	rows, err := h.fetch(r.Context(), req)
	if err != nil {
		slog.Error("api: range query failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "failed to fetch ETA data")
		return
	}
	h.metrics.RowsIngested(catalog.KindMongo, len(rows))

	resp := etaResponse{
		CollectionName: h.finder.Collection(),
		Count:          len(rows),
	}

	if req.Mode == "aggregated" {
		// Bulk path: fold rows into counters without materializing records.
		acc := aggregate.NewAccumulator(provider, h.threshold())
		for _, row := range rows {
			acc.Add(ingest.NormalizeRow(row))
		}
		resp.CityStats = acc.CityStats()
		resp.TimeBucketStats = acc.TimeBucketStats()
	} else {
		records := classify.Batch(ingest.NormalizeRows(rows), h.threshold())
		h.metrics.Classified(records)
		resp.Data = make([]recordResponse, 0, len(records))
		for _, rec := range records {
			resp.Data = append(resp.Data, toRecordResponse(rec))
		}
	}

	jsonResp(w, http.StatusOK, resp)
}

// uploadCSV serves POST /api/sources/csv — a multipart CSV upload that
// becomes a new catalog source.
func (h *Handler) uploadCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCSVUpload); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonErr(w, http.StatusBadRequest, `missing "file" form field`)
		return
	}
	defer file.Close()

	start := h.now()
	rows, err := ingest.ReadCSV(file)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	// CSV cleaning rule: rows missing any duration are dropped up front.
	clean := ingest.DropIncomplete(rows)
	records := classify.Batch(ingest.NormalizeRows(clean), h.threshold())

	h.metrics.RowsIngested(catalog.KindCSV, len(clean))
	h.metrics.RowsDropped(catalog.KindCSV, len(rows)-len(clean))
	h.metrics.Classified(records)
	h.metrics.ImportObserved(h.now().Sub(start))

	src := h.catalog.Add(header.Filename, catalog.KindCSV, records)
	slog.Info("api: csv source added",
		"source", src.ID, "file", header.Filename,
		"rows", len(rows), "kept", len(clean))

	jsonResp(w, http.StatusCreated, toSourceResponse(src))
}

// importMongo serves POST /api/sources/mongo — runs a range query and
// registers the classified result as a catalog source.
func (h *Handler) importMongo(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEtaRequest(r.Body)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.finder == nil {
		jsonErr(w, http.StatusServiceUnavailable, "document store unavailable")
		return
	}

	start := h.now()
	rows, err := h.fetch(r.Context(), req)
	if err != nil {
		slog.Error("api: mongo import failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "mongo import failed")
		return
	}

	records := classify.Batch(ingest.NormalizeRows(rows), h.threshold())
	h.metrics.RowsIngested(catalog.KindMongo, len(rows))
	h.metrics.Classified(records)
	h.metrics.ImportObserved(h.now().Sub(start))

	from, to := h.resolveRange(req)
	name := fmt.Sprintf("%s (%s → %s)", h.finder.Collection(), orAny(from), orAny(to))
	src := h.catalog.Add(name, catalog.KindMongo, records)
	slog.Info("api: mongo source added", "source", src.ID, "records", len(records))

	jsonResp(w, http.StatusCreated, toSourceResponse(src))
}

// listSources serves GET /api/sources.
func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	sources := h.catalog.List()
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceResponse(src))
	}
	jsonResp(w, http.StatusOK, out)
}

// deleteSource serves DELETE /api/sources/{id}.
func (h *Handler) deleteSource(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.catalog.Remove(id) {
		jsonErr(w, http.StatusNotFound, "source not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analysis serves GET /api/analysis — merged rollups over selected sources.
// ?sources=id1,id2 selects a subset; absent means every source.
func (h *Handler) analysis(w http.ResponseWriter, r *http.Request) {
	provider, err := h.resolveComparison(r.URL.Query().Get("comparison"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	var ids []string
	if raw := r.URL.Query().Get("sources"); raw != "" {
		ids = strings.Split(raw, ",")
	}

	merged := h.catalog.Merged(ids)
	jsonResp(w, http.StatusOK, analysisResponse{
		Comparison:      provider,
		TotalRecords:    len(merged),
		CityStats:       aggregate.ByCity(merged, provider),
		TimeBucketStats: aggregate.ByTimeBucket(merged, provider),
		GeneratedAt:     h.now().UTC().Format(time.RFC3339),
	})
}

// health serves GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, healthResponse{
		Status:         "ok",
		StoreConnected: h.finder != nil,
		SourceCount:    h.catalog.Count(),
		TotalRecords:   h.catalog.TotalRecords(),
		UptimeSeconds:  int64(time.Since(h.started).Seconds()),
	})
}

// --- helpers ----------------------------------------------------------------

func decodeEtaRequest(body io.Reader) (etaRequest, error) {
	var req etaRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// resolveRange turns the request's preset/date/run-id fields into inclusive
// run-id bounds. Empty strings mean unbounded.
func (h *Handler) resolveRange(req etaRequest) (from, to string) {
	now := h.now()
	switch req.Preset {
	case PresetLast7Days:
		return eta.RunIDFromTime(now.AddDate(0, 0, -7)), eta.RunIDFromTime(now)
	case PresetLast30Days:
		return eta.RunIDFromTime(now.AddDate(0, 0, -30)), eta.RunIDFromTime(now)
	}

	from, to = req.FromRunID, req.ToRunID
	if from == "" && req.FromDate != "" {
		from = eta.DayStartRunID(req.FromDate)
	}
	if to == "" && req.ToDate != "" {
		to = eta.DayEndRunID(req.ToDate)
	}
	return from, to
}

func (h *Handler) fetch(ctx context.Context, req etaRequest) ([]ingest.RawRow, error) {
	from, to := h.resolveRange(req)
	return h.finder.FindRange(ctx, store.Query{
		FromRunID: from,
		ToRunID:   to,
		City:      req.City,
		Limit:     req.Limit,
	})
}

func (h *Handler) resolveComparison(name string) (eta.Provider, error) {
	if name == "" {
		return h.comparison, nil
	}
	p := eta.Provider(name)
	if !p.Valid() || p == eta.ProviderGoogle {
		return "", fmt.Errorf("comparison %q unknown: want mappls|oauth2", name)
	}
	return p, nil
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
