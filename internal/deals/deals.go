// Package deals holds the data model shared by the selection engine and its
// collaborators: scraped products, categories, and the rolling selection state.
package deals

// Product is one scraped marketplace listing.
type Product struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Price         string  `json:"price"`
	PreviousPrice string  `json:"previous_price,omitempty"`
	DiscountPct   float64 `json:"discount_pct"`
	RatingCount   int     `json:"rating_count"`
	SalesCount    int     `json:"sales_count"`
	ImageURL      string  `json:"image_url,omitempty"`
	Link          string  `json:"link"`
	HasDeal       bool    `json:"has_deal"`

	// Variants is only set on the representative of a variant group.
	Variants []Variant `json:"additional_variants,omitempty"`
}

// Variant is the lightweight record kept for a non-representative member of a
// variant group.
type Variant struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Link          string  `json:"link"`
	Price         string  `json:"price"`
	PreviousPrice string  `json:"previous_price,omitempty"`
	DiscountPct   float64 `json:"discount_pct"`
}

// AsVariant projects p onto the fields a variant record carries.
func (p Product) AsVariant() Variant {
	return Variant{
		ID:            p.ID,
		Title:         p.Title,
		Link:          p.Link,
		Price:         p.Price,
		PreviousPrice: p.PreviousPrice,
		DiscountPct:   p.DiscountPct,
	}
}

// HasVariants reports whether p represents a group of variants.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// Category is one searchable product family.
type Category struct {
	Name  string `yaml:"name" json:"name"`
	Emoji string `yaml:"emoji" json:"emoji"`
	// Query is the marketplace search path, opaque to the selection engine.
	Query string `yaml:"query" json:"query"`

	CheckSimilarTitles bool `yaml:"check_similar_titles" json:"check_similar_titles"`
	WeeklyLimit        bool `yaml:"weekly_limit" json:"weekly_limit"`
}

// Candidate pairs a product with the category it was found in.
type Candidate struct {
	Product  Product
	Category Category
}

// Candidates wraps every product of a category listing into candidates.
func Candidates(cat Category, products []Product) []Candidate {
	out := make([]Candidate, 0, len(products))
	for _, p := range products {
		out = append(out, Candidate{Product: p, Category: cat})
	}
	return out
}
