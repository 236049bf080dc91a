package normalize

import (
	"context"
	"errors"
	"testing"

	"github.com/maltedev/feed-normalizer/internal/models"
	"github.com/maltedev/feed-normalizer/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const benchPage = `<html><head>
<script type="application/ld+json">{
	"@context": "https://schema.org",
	"@type": "Product",
	"name": "Bench",
	"sku": "BN-1",
	"description": "Entry bench.",
	"image": ["ld.jpg"],
	"brand": {"@type": "Brand", "name": "Acme"},
	"offers": {"@type": "Offer", "price": "249.00", "availability": "https://schema.org/InStock"}
}</script>
</head><body>
<h1>Oak Entry Bench</h1>
<span class="price">$1,299.00</span>
<div class="product-gallery"><img src="a.jpg"><img src="b.jpg"></div>
<div class="product-description"><p>Built to last.</p></div>
<ul class="product-features">
	<li>Hand rubbed finish</li>
	<li>Material: White oak</li>
</ul>
<div class="product-specs">Assembly: Required<br>18" H x 48" W x 16" D</div>
<div class="product-dimensions">Weight: 40 lbs 8 oz</div>
<select data-option-group="Finish">
	<option value="">Choose an option</option>
	<option value="n">Natural</option>
	<option value="e" data-price-delta="+$75.00" data-image="e.jpg">Espresso</option>
</select>
<select data-option-group="Cushion">
	<option value="none">None</option>
	<option value="lin" data-price-delta="40">Linen</option>
</select>
</body></html>`

func TestSelectorAdapterAdapt(t *testing.T) {
	doc, err := parser.NewHTMLDocument(benchPage)
	require.NoError(t, err)

	in, err := NewSelectorAdapter(DefaultSelectors()).Adapt(doc)
	require.NoError(t, err)

	assert.Equal(t, "Oak Entry Bench", in.Base.Name)
	assert.Equal(t, "BN-1", in.Base.ExternalID)
	assert.InDelta(t, 1299, in.Base.Price, 1e-9)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, in.Base.Images)
	assert.Equal(t, 1, in.Base.Availability)
	assert.Equal(t, "Entry bench.", in.Base.Description)
	assert.Equal(t, []string{"Weight: 40 lbs 8 oz"}, in.MeasurementText)

	require.Len(t, in.Groups, 2)
	assert.Equal(t, "Finish", in.Groups[0].Label)
	require.Len(t, in.Groups[0].Values, 2)
	assert.Equal(t, models.OptionValue{ID: "e", Label: "Espresso", PriceDelta: 75, Images: []string{"e.jpg"}}, in.Groups[0].Values[1])
	assert.Equal(t, "Cushion", in.Groups[1].Label)
	assert.InDelta(t, 40, in.Groups[1].Values[1].PriceDelta, 1e-9)
}

func TestNormalizeDocument(t *testing.T) {
	doc, err := parser.NewHTMLDocument(benchPage)
	require.NoError(t, err)

	product, err := newTestNormalizer(nil).NormalizeDocument(context.Background(), NewSelectorAdapter(DefaultSelectors()), doc)
	require.NoError(t, err)

	assert.Equal(t, "Entry bench.\n\nBuilt to last.", product.Description)
	assert.Equal(t, []string{"Hand rubbed finish"}, product.ShortDescription)
	assert.Equal(t, []string{"Brand", "Material", "Assembly"}, product.Attributes.Keys())

	require.NotNil(t, product.Dims.X)
	assert.InDelta(t, 48, *product.Dims.X, 1e-9)
	assert.InDelta(t, 18, *product.Dims.Y, 1e-9)
	assert.InDelta(t, 16, *product.Dims.Z, 1e-9)
	require.NotNil(t, product.Weight)
	assert.InDelta(t, 40.5, *product.Weight, 1e-9)

	require.Len(t, product.Children, 4)
	last := product.Children[3]
	assert.Equal(t, "Finish: Espresso. Cushion: Linen. ", last.Name)
	assert.Equal(t, "BN-1-e-lin", last.ExternalID)
	assert.InDelta(t, 1299+75+40, last.Price, 1e-9)
	assert.Equal(t, []string{"e.jpg"}, last.Images)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, product.Children[0].Images)
}

func TestSelectorAdapterBrokenJSONLD(t *testing.T) {
	doc, err := parser.NewHTMLDocument(`<h1>Bench</h1><script type="application/ld+json">{"@type": "Product",</script>`)
	require.NoError(t, err)

	_, err = newTestNormalizer(nil).NormalizeDocument(context.Background(), NewSelectorAdapter(DefaultSelectors()), doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstreamDecode))
}

func TestSelectorAdapterWithoutStructuredData(t *testing.T) {
	doc, err := parser.NewHTMLDocument(`<h1>Stool</h1><span itemprop="sku">ST-9</span><span class="price">89</span>`)
	require.NoError(t, err)

	in, err := NewSelectorAdapter(DefaultSelectors()).Adapt(doc)
	require.NoError(t, err)

	assert.Equal(t, "ST-9", in.Base.ExternalID)
	assert.InDelta(t, 89, in.Base.Price, 1e-9)
	assert.Equal(t, 1, in.Base.Availability)
	assert.Empty(t, in.Groups)
	assert.Empty(t, in.MeasurementText)
}

func TestSelectorAdapterStructuredAvailability(t *testing.T) {
	tests := []struct {
		name   string
		jsonld string
		want   int
	}{
		{name: "no offers", jsonld: `{"@type":"Product","name":"Stool","sku":"ST1"}`, want: 1},
		{name: "offer without availability", jsonld: `{"@type":"Product","sku":"ST1","offers":{"price":"80"}}`, want: 1},
		{name: "out of stock", jsonld: `{"@type":"Product","sku":"ST1","offers":{"availability":"https://schema.org/OutOfStock"}}`, want: 0},
		{name: "in stock", jsonld: `{"@type":"Product","sku":"ST1","offers":{"availability":"InStock"}}`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<script type="application/ld+json">` + tt.jsonld + `</script>
<h1>Stool</h1><span class="price">$80.00</span>
<select data-option-group="Color"><option value="blk">Black</option><option value="red">Red</option></select>`
			doc, err := parser.NewHTMLDocument(page)
			require.NoError(t, err)

			adapter := NewSelectorAdapter(DefaultSelectors())
			in, err := adapter.Adapt(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.Base.Availability)

			product, err := newTestNormalizer(nil).NormalizeDocument(context.Background(), adapter, doc)
			require.NoError(t, err)
			require.Len(t, product.Children, 2)
			for _, child := range product.Children {
				assert.Equal(t, tt.want, child.Availability)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "$1,299.00", want: 1299, ok: true},
		{in: "249.", want: 249, ok: true},
		{in: "EUR 12,50", want: 12.5, ok: true},
		{in: "Call for price", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parsePrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
