package search

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	sizes []int
}

func (r *recordingObserver) ObserveFilterQuery(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, n)
}

func TestEngineStartsFromDefaults(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	res := e.Results()
	assert.Equal(t, 10, res.Count)
	assert.Equal(t, 0, res.ActiveFilters)
	assert.True(t, res.Criteria.PriceRange.Min.Equal(decimal.NewFromInt(89)))
	assert.True(t, res.Criteria.PriceRange.Max.Equal(decimal.NewFromInt(1999)))
}

func TestEngineToggleCategoryTwiceRestores(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	res := e.ToggleCategory("electronics")
	require.Equal(t, 6, res.Count)
	require.Equal(t, []string{"electronics"}, res.Criteria.Categories)

	res = e.ToggleCategory("fashion")
	require.Equal(t, 8, res.Count)

	res = e.ToggleCategory("electronics")
	require.Equal(t, []string{"fashion"}, res.Criteria.Categories)
	assertIDs(t, res.Products, "premium-leather-jacket", "designer-hoodie")
}

func TestEngineToggleBrand(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	res := e.ToggleBrand("Apple")
	assertIDs(t, res.Products, "iphone-15-pro", "macbook-pro-14", "airpods-pro-2")
	res = e.ToggleBrand("Apple")
	assert.Equal(t, 10, res.Count)
	assert.Empty(t, res.Criteria.Brands)
}

func TestEngineSettersAndReset(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	e.SetQuery("premium")
	e.SetOnSaleOnly(true)
	e.SetInStockOnly(true)
	e.SetMinRating(4.5)
	res := e.SetPriceRange(decimal.NewFromInt(300), decimal.NewFromInt(1999))
	assertIDs(t, res.Products, "iphone-15-pro", "sony-wh1000xm5", "modern-sofa-set")
	assert.Equal(t, "premium", res.Query)
	assert.Equal(t, 4, res.ActiveFilters)

	res = e.Reset()
	assert.Equal(t, 10, res.Count)
	assert.Equal(t, "", res.Query)
	assert.Equal(t, 0, res.ActiveFilters)
}

func TestEngineUpdateAppliesPartialChange(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	e.SetQuery("camera")
	res := e.Update(func(cr *Criteria) { cr.Brands = []string{"Samsung"} })
	assertIDs(t, res.Products, "samsung-s24-ultra")
	assert.Equal(t, "camera", e.Criteria().Query)
}

func TestEngineCriteriaIsACopy(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)
	e.ToggleCategory("home")

	snapshot := e.Criteria()
	snapshot.Categories[0] = "sports"
	assert.Equal(t, []string{"home"}, e.Criteria().Categories)
}

func TestEngineReportsResultSizes(t *testing.T) {
	c := loadCatalog(t)
	obs := &recordingObserver{}
	e := NewEngine(c, obs)

	e.SetQuery("iphone")
	e.Reset()
	assert.Equal(t, []int{1, 10}, obs.sizes)
}

func TestEngineFacets(t *testing.T) {
	c := loadCatalog(t)
	f := NewEngine(c, nil).Facets()
	assert.Equal(t, []string{"Apple", "ComfortLiving", "FitTech", "Microsoft", "NexusStyle", "Samsung", "Sony", "UrbanWear"}, f.Brands)
	assert.True(t, f.PriceRange.Min.Equal(decimal.NewFromInt(89)))
}

func TestEngineConcurrentToggles(t *testing.T) {
	c := loadCatalog(t)
	e := NewEngine(c, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ToggleCategory("sports")
		}()
	}
	wg.Wait()
	// an even number of toggles leaves the selection empty
	assert.Empty(t, e.Criteria().Categories)
}
