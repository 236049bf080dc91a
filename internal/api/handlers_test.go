package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maltedev/feed-normalizer/internal/config"
	"github.com/maltedev/feed-normalizer/internal/fetch"
	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/normalize"
	"github.com/maltedev/feed-normalizer/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type urlNormalizer struct {
	*normalize.Normalizer
	pages map[string]string
}

func (u *urlNormalizer) NormalizeURL(ctx context.Context, adapter normalize.Adapter, pageURL string) (models.ProductDraft, error) {
	html, ok := u.pages[pageURL]
	if !ok {
		return models.ProductDraft{}, &fetch.StatusError{URL: pageURL, StatusCode: http.StatusNotFound}
	}
	doc, err := parser.NewHTMLDocument(html)
	if err != nil {
		return models.ProductDraft{}, err
	}
	return u.NormalizeDocument(ctx, adapter, doc)
}

const stoolPage = `<h1>Counter Stool</h1>
<span itemprop="sku">CS-2</span>
<span class="price">$129.00</span>
<ul class="product-features"><li>Seat Height: 26 in</li><li>Swivel seat</li></ul>
<select data-option-group="Color">
	<option value="blk">Black</option>
	<option value="wht" data-price-delta="10">White</option>
</select>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n := &urlNormalizer{
		Normalizer: normalize.NewNormalizer(nil, nil, nil, logger),
		pages:      map[string]string{"https://shop.test/stool": stoolPage},
	}
	h := NewHandlers(n, normalize.NewSelectorAdapter(normalize.DefaultSelectors()), logger)
	srv := httptest.NewServer(NewRouter(h, config.ServerConfig{AllowedOrigins: []string{"*"}}, logger))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestNormalizeForms(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		req  NormalizeRequest
	}{
		{name: "url", req: NormalizeRequest{URL: "https://shop.test/stool"}},
		{name: "html", req: NormalizeRequest{HTML: stoolPage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/api/v1/normalize", tt.req)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var out NormalizeResponse
			require.NoError(t, json.Unmarshal(body, &out))
			require.NotNil(t, out.Product)
			assert.Equal(t, "CS-2", out.Product.ExternalID)
			assert.Equal(t, []string{"Seat Height"}, out.Product.Attributes.Keys())
			require.Len(t, out.Product.Children, 2)
			assert.Equal(t, "CS-2-wht", out.Product.Children[1].ExternalID)
			assert.InDelta(t, 139, out.Product.Children[1].Price, 1e-9)
		})
	}
}

func TestNormalizeStructuredProduct(t *testing.T) {
	srv := newTestServer(t)

	raw := `{
		"product": {"name": "Shelf", "external_id": "SH", "price": 80, "attributes": {"Finish": "Oak"}},
		"sections": [{"lines": ["Mounting: Wall", "36\" W x 10\" H"]}],
		"groups": [{"label": "Size", "values": [{"id": "s", "label": "Small"}, {"id": "l", "label": "Large", "price_delta": 20}]}]
	}`
	resp, err := http.Post(srv.URL+"/api/v1/normalize", "application/json", bytes.NewBufferString(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out NormalizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.Product)
	assert.Equal(t, []string{"Finish", "Mounting"}, out.Product.Attributes.Keys())
	require.NotNil(t, out.Product.Dims.X)
	assert.InDelta(t, 36, *out.Product.Dims.X, 1e-9)
	assert.InDelta(t, 10, *out.Product.Dims.Y, 1e-9)
	assert.Nil(t, out.Product.Dims.Z)
	require.Len(t, out.Product.Children, 2)
	assert.InDelta(t, 100, out.Product.Children[1].Price, 1e-9)
}

func TestNormalizeErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		req    NormalizeRequest
		status int
	}{
		{name: "empty request", req: NormalizeRequest{}, status: http.StatusBadRequest},
		{name: "upstream page missing", req: NormalizeRequest{URL: "https://shop.test/gone"}, status: http.StatusBadGateway},
		{
			name:   "broken structured data",
			req:    NormalizeRequest{HTML: `<script type="application/ld+json">{"@type":</script>`},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/api/v1/normalize", tt.req)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}

	resp, err := http.Post(srv.URL+"/api/v1/normalize", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNormalizeBatch(t *testing.T) {
	srv := newTestServer(t)

	reqs := []NormalizeRequest{
		{Product: &models.ProductDraft{Name: "A", ExternalID: "A", Price: 1}},
		{Product: &models.ProductDraft{Name: "B", ExternalID: "B", Price: 2}, MeasurementText: []string{"Weight: 3 lbs 2 oz"}},
	}
	resp, body := post(t, srv, "/api/v1/normalize/batch", reqs)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []NormalizeResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Product.ExternalID)
	require.NotNil(t, out[1].Product.Weight)
	assert.InDelta(t, 3.125, *out[1].Product.Weight, 1e-9)

	resp, _ = post(t, srv, "/api/v1/normalize/batch", []NormalizeRequest{{URL: "https://shop.test/stool"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMeasure(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv, "/api/v1/measure", MeasureRequest{Text: `12" H x 8" W x 4" D`})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out MeasureResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Found)
	require.NotNil(t, out.Dims.Y)
	assert.InDelta(t, 12, *out.Dims.Y, 1e-9)
	assert.InDelta(t, 8, *out.Dims.X, 1e-9)
	assert.InDelta(t, 4, *out.Dims.Z, 1e-9)
	assert.Nil(t, out.Weight)
	assert.Equal(t, []string{"hwd"}, out.Matched)

	_, body = post(t, srv, "/api/v1/measure", MeasureRequest{Text: "Free shipping"})
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Found)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
