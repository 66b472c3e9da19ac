// Package variants collapses listings of the same product (different
// platform, color, size) into a single candidate with linked alternates.
package variants

import (
	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/similarity"
)

// Group partitions entries into variant clusters and returns one candidate per
// cluster, in order of first appearance. Each entry is compared only with the
// first member of every cluster; grouping is not transitive.
//
// The representative of a cluster is the member with the highest discount,
// then the highest rating count. The other members are attached to a copy of
// its product as Variants, in the order they were found. Entries are never
// modified.
func Group(entries []deals.Candidate) []deals.Candidate {
	if len(entries) == 0 {
		return []deals.Candidate{}
	}

	var clusters [][]deals.Candidate
	for _, e := range entries {
		placed := false
		for i, cl := range clusters {
			if similarity.AreVariants(cl[0].Product.Title, e.Product.Title) {
				clusters[i] = append(cl, e)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []deals.Candidate{e})
		}
	}

	out := make([]deals.Candidate, 0, len(clusters))
	for _, cl := range clusters {
		out = append(out, collapse(cl))
	}
	return out
}

func collapse(cluster []deals.Candidate) deals.Candidate {
	if len(cluster) == 1 {
		return cluster[0]
	}

	rep := 0
	for i := 1; i < len(cluster); i++ {
		if better(cluster[i].Product, cluster[rep].Product) {
			rep = i
		}
	}

	alternates := make([]deals.Variant, 0, len(cluster)-1)
	for i, c := range cluster {
		if i == rep {
			continue
		}
		alternates = append(alternates, c.Product.AsVariant())
	}

	product := cluster[rep].Product
	product.Variants = alternates
	return deals.Candidate{Product: product, Category: cluster[rep].Category}
}

func better(a, b deals.Product) bool {
	if a.DiscountPct != b.DiscountPct {
		return a.DiscountPct > b.DiscountPct
	}
	return a.RatingCount > b.RatingCount
}
