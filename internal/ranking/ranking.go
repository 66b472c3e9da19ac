// Package ranking orders the deals of one category.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/deusflow/ofertas/internal/deals"
)

// BrandMatcher flags titles that mention one of the preferred brands.
type BrandMatcher struct {
	matcher *ahocorasick.Matcher
	brands  []string
}

// NewBrandMatcher builds a case-insensitive matcher for brands.
func NewBrandMatcher(brands []string) *BrandMatcher {
	keywords := make([]string, 0, len(brands))
	for _, b := range brands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			keywords = append(keywords, b)
		}
	}

	bm := &BrandMatcher{brands: keywords}
	if len(keywords) > 0 {
		bm.matcher = ahocorasick.NewStringMatcher(keywords)
	}
	return bm
}

// Priority returns 1 when title contains a preferred brand, 0 otherwise.
func (bm *BrandMatcher) Priority(title string) int {
	if bm == nil || bm.matcher == nil || title == "" {
		return 0
	}
	if len(bm.matcher.MatchThreadSafe([]byte(strings.ToLower(title)))) > 0 {
		return 1
	}
	return 0
}

// Brands returns the normalized brand list.
func (bm *BrandMatcher) Brands() []string {
	if bm == nil {
		return nil
	}
	return slices.Clone(bm.brands)
}

// Key is the composite sort key of a candidate inside its category.
type Key struct {
	Discount float64
	Brand    int
	Ratings  int
	Sales    int
}

// Compare orders keys descending: a negative result means a ranks first.
func (k Key) Compare(o Key) int {
	return cmp.Or(
		cmp.Compare(o.Discount, k.Discount),
		cmp.Compare(o.Brand, k.Brand),
		cmp.Compare(o.Ratings, k.Ratings),
		cmp.Compare(o.Sales, k.Sales),
	)
}

// Ranker sorts category listings.
type Ranker struct {
	brands *BrandMatcher
}

// NewRanker returns a ranker that prefers brands on equal discount.
func NewRanker(brands *BrandMatcher) *Ranker {
	return &Ranker{brands: brands}
}

// KeyOf computes the sort key of p.
func (r *Ranker) KeyOf(p deals.Product) Key {
	return Key{
		Discount: p.DiscountPct,
		Brand:    r.brands.Priority(p.Title),
		Ratings:  p.RatingCount,
		Sales:    p.SalesCount,
	}
}

// Rank drops listings without a deal or without an id and returns the rest
// sorted best first. Equal keys keep their input order.
func (r *Ranker) Rank(in []deals.Candidate) []deals.Candidate {
	type keyed struct {
		c   deals.Candidate
		key Key
	}

	eligible := Eligible(in)
	items := make([]keyed, 0, len(eligible))
	for _, c := range eligible {
		items = append(items, keyed{c: c, key: r.KeyOf(c.Product)})
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})

	out := make([]deals.Candidate, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}

// Eligible drops listings that can never be published: no deal or no id.
func Eligible(in []deals.Candidate) []deals.Candidate {
	out := make([]deals.Candidate, 0, len(in))
	for _, c := range in {
		if c.Product.HasDeal && c.Product.ID != "" {
			out = append(out, c)
		}
	}
	return out
}
