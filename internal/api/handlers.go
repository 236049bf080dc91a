package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maltedev/feed-normalizer/internal/fetch"
	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/normalize"
	"github.com/maltedev/feed-normalizer/internal/parser"
)

// Normalizer is the part of normalize.Service the handlers use.
type Normalizer interface {
	Normalize(ctx context.Context, in normalize.Input) (models.ProductDraft, error)
	NormalizeBatch(ctx context.Context, inputs []normalize.Input) []normalize.Result
	NormalizeDocument(ctx context.Context, adapter normalize.Adapter, doc parser.Document) (models.ProductDraft, error)
	NormalizeURL(ctx context.Context, adapter normalize.Adapter, pageURL string) (models.ProductDraft, error)
	Miner() *parser.Miner
}

type Handlers struct {
	normalizer Normalizer
	adapter    normalize.Adapter
	logger     *slog.Logger
}

func NewHandlers(normalizer Normalizer, adapter normalize.Adapter, logger *slog.Logger) *Handlers {
	return &Handlers{
		normalizer: normalizer,
		adapter:    adapter,
		logger:     logger.With("component", "api"),
	}
}

// SectionRequest is one block of text lines to classify.
type SectionRequest struct {
	Description string   `json:"description"`
	Lines       []string `json:"lines"`
}

// NormalizeRequest carries a product in one of three forms: a page URL to
// download, raw page HTML, or already extracted fields.
type NormalizeRequest struct {
	URL             string               `json:"url,omitempty"`
	HTML            string               `json:"html,omitempty"`
	Product         *models.ProductDraft `json:"product,omitempty"`
	Sections        []SectionRequest     `json:"sections,omitempty"`
	MeasurementText []string             `json:"measurement_text,omitempty"`
	Groups          []models.OptionGroup `json:"groups,omitempty"`
}

func (r NormalizeRequest) input() normalize.Input {
	in := normalize.Input{
		MeasurementText: r.MeasurementText,
		Groups:          r.Groups,
	}
	if r.Product != nil {
		in.Base = *r.Product
	}
	for _, s := range r.Sections {
		in.Sections = append(in.Sections, parser.Section{Description: s.Description, Lines: s.Lines})
	}
	return in
}

// NormalizeResponse wraps one normalized product.
type NormalizeResponse struct {
	Product *models.ProductDraft `json:"product,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Normalize handles a single product in any request form.
func (h *Handlers) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		product models.ProductDraft
		err     error
	)
	switch {
	case req.URL != "":
		product, err = h.normalizer.NormalizeURL(r.Context(), h.adapter, req.URL)
	case req.HTML != "":
		var doc *parser.HTMLDocument
		doc, err = parser.NewHTMLDocument(req.HTML)
		if err == nil {
			product, err = h.normalizer.NormalizeDocument(r.Context(), h.adapter, doc)
		}
	case req.Product != nil:
		product, err = h.normalizer.Normalize(r.Context(), req.input())
	default:
		h.respondError(w, http.StatusBadRequest, "one of url, html or product is required")
		return
	}

	if err != nil {
		h.logger.Error("failed to normalize product", "error", err, "url", req.URL)
		h.respondJSON(w, statusFor(err), NormalizeResponse{Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusOK, NormalizeResponse{Product: &product})
}

// NormalizeBatch handles a list of already extracted products. A failed
// product does not fail the request.
func (h *Handlers) NormalizeBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs := make([]normalize.Input, len(reqs))
	for i, req := range reqs {
		if req.Product == nil {
			h.respondError(w, http.StatusBadRequest, "every batch entry needs a product")
			return
		}
		inputs[i] = req.input()
	}

	results := h.normalizer.NormalizeBatch(r.Context(), inputs)

	resp := make([]NormalizeResponse, len(results))
	for i, res := range results {
		if res.Err != nil {
			resp[i].Error = res.Err.Error()
			continue
		}
		product := res.Product
		resp[i].Product = &product
	}

	h.respondJSON(w, http.StatusOK, resp)
}

type MeasureRequest struct {
	Text string `json:"text"`
}

type MeasureResponse struct {
	Found   bool              `json:"found"`
	Dims    models.Dimensions `json:"dims"`
	Weight  *float64          `json:"weight"`
	Matched []string          `json:"matched"`
}

// Measure mines a single text for dimensions and weight.
func (h *Handlers) Measure(w http.ResponseWriter, r *http.Request) {
	var req MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m := h.normalizer.Miner().Measure(req.Text)
	h.respondJSON(w, http.StatusOK, MeasureResponse{
		Found:   !m.IsEmpty(),
		Dims:    m.Dims,
		Weight:  m.Weight,
		Matched: m.Matched,
	})
}

// statusFor maps a normalization error onto an HTTP status.
func statusFor(err error) int {
	var statusErr *fetch.StatusError
	switch {
	case errors.Is(err, models.ErrUpstreamDecode):
		return http.StatusUnprocessableEntity
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
