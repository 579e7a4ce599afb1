package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Seed Catalog Tests
// ============================================

func TestDefault_SeedStock(t *testing.T) {
	c := Default()

	assert.Len(t, c.IDs(), 10)
	assert.Equal(t, 28, c.SeedStock("lambie-plush"))
	assert.Equal(t, 12, c.SeedStock("coco-blanket"))
	assert.Equal(t, 0, c.SeedStock("no-such-product"))
}

func TestCatalog_Get(t *testing.T) {
	c := Default()

	p, err := c.Get("story-book")
	require.NoError(t, err)
	assert.Equal(t, 18000, p.Price)
	assert.Equal(t, CategoryBook, p.Category)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, c.Exists("story-book"))
	assert.False(t, c.Exists("missing"))
}

func TestCatalog_List(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 10},
		{"plushies", Filter{Category: CategoryPlushie}, 4},
		{"featured", Filter{Featured: true}, 4},
		{"featured plushies", Filter{Category: CategoryPlushie, Featured: true}, 3},
		{"search english", Filter{Query: "coco"}, 2},
		{"search korean", Filter{Query: "에코백"}, 1},
		{"no match", Filter{Query: "robot"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, c.List(tt.filter), tt.want)
		})
	}
}

func TestCatalog_Categories(t *testing.T) {
	cats := Default().Categories()

	require.Len(t, cats, 5)
	assert.Equal(t, CategoryPlushie, cats[0].ID)
	assert.Equal(t, 4, cats[0].Count)
}

// ============================================
// Validation Tests
// ============================================

func TestNew_Validation(t *testing.T) {
	valid := Product{ID: "a", Name: "A", Price: 100, Category: CategoryBook}

	tests := []struct {
		name     string
		products []Product
		wantErr  error
	}{
		{"missing name", []Product{{ID: "a", Price: 100, Category: CategoryBook}}, ErrInvalidName},
		{"zero price", []Product{{ID: "a", Name: "A", Category: CategoryBook}}, ErrInvalidPrice},
		{"bad category", []Product{{ID: "a", Name: "A", Price: 1, Category: "robot"}}, ErrUnknownCategory},
		{"duplicate", []Product{valid, valid}, ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.products)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ============================================
// Loader Tests
// ============================================

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - id: mug
    name: Lambie Mug
    korean_name: 램비 머그
    price: 14000
    category: homegoods
    character_id: lamb
    stock: 5
    featured: true
  - id: pin
    name: Ari Pin
    price: 6000
    category: accessory
    stock: 0
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	mug, err := c.Get("mug")
	require.NoError(t, err)
	assert.Equal(t, "램비 머그", mug.KoreanName)
	assert.Equal(t, "lamb", mug.CharacterID)
	assert.True(t, mug.Featured)
	assert.Equal(t, 5, c.SeedStock("mug"))
	assert.Equal(t, 0, c.SeedStock("pin"))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesSeed(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.IDs(), 10)
}
