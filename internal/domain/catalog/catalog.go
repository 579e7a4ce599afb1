package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidName     = errors.New("name is required")
	ErrDuplicateID     = errors.New("duplicate product id")
	ErrUnknownCategory = errors.New("unknown category")
)

type Category string

const (
	CategoryPlushie   Category = "plushie"
	CategorySticker   Category = "sticker"
	CategoryBook      Category = "book"
	CategoryAccessory Category = "accessory"
	CategoryHomegoods Category = "homegoods"
)

// CategoryInfo is the display label served with category listings.
type CategoryInfo struct {
	ID    Category `json:"id"`
	Name  string   `json:"name"`
	Emoji string   `json:"emoji"`
}

var categories = []CategoryInfo{
	{ID: CategoryPlushie, Name: "인형", Emoji: "🧸"},
	{ID: CategorySticker, Name: "스티커", Emoji: "✨"},
	{ID: CategoryBook, Name: "책", Emoji: "📚"},
	{ID: CategoryAccessory, Name: "액세서리", Emoji: "🎒"},
	{ID: CategoryHomegoods, Name: "홈굿즈", Emoji: "🏠"},
}

func (c Category) Valid() bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string   `json:"id" koanf:"id"`
	Name        string   `json:"name" koanf:"name"`
	EnglishName string   `json:"englishName" koanf:"english_name"`
	KoreanName  string   `json:"koreanName" koanf:"korean_name"`
	Description string   `json:"description" koanf:"description"`
	Price       int      `json:"price" koanf:"price"`
	Image       string   `json:"image" koanf:"image"`
	Category    Category `json:"category" koanf:"category"`
	CharacterID string   `json:"characterId,omitempty" koanf:"character_id"`
	Stock       int      `json:"stock" koanf:"stock"`
	Featured    bool     `json:"featured,omitempty" koanf:"featured"`
}

func (p Product) validate() error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if p.Price <= 0 {
		return fmt.Errorf("%s: %w", p.ID, ErrInvalidPrice)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%s: %w %q", p.ID, ErrUnknownCategory, p.Category)
	}
	return nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Category Category
	Featured bool
	Query    string
}

// Catalog is the read-only product list loaded at startup.
type Catalog struct {
	products []Product
	byID     map[string]int
}

func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		if p.Stock < 0 {
			p.Stock = 0
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default returns the built-in seed catalog.
func Default() *Catalog {
	c, err := New(seedProducts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Get(id string) (Product, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[idx], nil
}

func (c *Catalog) Exists(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// SeedStock is the initial stock for a product, 0 for unknown ids.
func (c *Catalog) SeedStock(id string) int {
	p, err := c.Get(id)
	if err != nil {
		return 0
	}
	return p.Stock
}

func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.products))
	for _, p := range c.products {
		ids = append(ids, p.ID)
	}
	return ids
}

func (c *Catalog) List(f Filter) []Product {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Featured && !p.Featured {
			continue
		}
		if q != "" && !matches(p, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p Product, q string) bool {
	for _, s := range []string{p.Name, p.EnglishName, p.KoreanName, p.Description} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// Categories returns the category labels with product counts.
func (c *Catalog) Categories() []CategoryCount {
	counts := make(map[Category]int)
	for _, p := range c.products {
		counts[p.Category]++
	}
	out := make([]CategoryCount, 0, len(categories))
	for _, info := range categories {
		out = append(out, CategoryCount{CategoryInfo: info, Count: counts[info.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

type CategoryCount struct {
	CategoryInfo
	Count int `json:"count"`
}
