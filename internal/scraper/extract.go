package scraper

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/ofertas/internal/deals"
)

const (
	maxTitleRunes = 100
	noTitle       = "Sin titulo"
	noPrice       = "N/A"
)

var salesNumber = regexp.MustCompile(`(\d+)[kK]?\+?`)

// ExtractOptions controls how search results become products.
type ExtractOptions struct {
	BaseURL    string
	PartnerTag string
	// Limit caps the number of results read from a page; 0 means no cap.
	Limit int
}

// AffiliateURL returns the product page of id carrying the partner tag.
func AffiliateURL(baseURL, id, tag string) string {
	link := strings.TrimRight(baseURL, "/") + "/dp/" + url.PathEscape(id)
	if tag != "" {
		link += "?tag=" + url.QueryEscape(tag)
	}
	return link
}

// ExtractProducts reads the search result cards of a listing page. Cards
// without an id are skipped.
func ExtractProducts(r io.Reader, opts ExtractOptions) ([]deals.Product, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	items := doc.Find(`[data-component-type="s-search-result"]`)
	if opts.Limit > 0 && items.Length() > opts.Limit {
		items = items.Slice(0, opts.Limit)
	}

	products := make([]deals.Product, 0, items.Length())
	items.Each(func(_ int, item *goquery.Selection) {
		id := strings.TrimSpace(item.AttrOr("data-asin", ""))
		if id == "" {
			return
		}
		products = append(products, extractProduct(item, id, opts))
	})
	return products, nil
}

func extractProduct(item *goquery.Selection, id string, opts ExtractOptions) deals.Product {
	title := text(item.Find("h2 a span").First())
	if title == "" {
		title = text(item.Find("h2 span").First())
	}
	if title == "" {
		title = noTitle
	}

	price := text(item.Find(".a-price .a-offscreen").First())
	if price == "" {
		price = noPrice
	}
	previous := text(item.Find(`.a-price[data-a-strike="true"] .a-offscreen`).First())

	p := deals.NewProduct(id, truncate(title, maxTitleRunes), price, previous)
	p.RatingCount = digits(text(item.Find(".a-size-base.s-underline-text").First()))
	p.SalesCount = sales(text(item.Find(".a-size-base.a-color-secondary").First()))
	p.ImageURL = item.Find("img.s-image").First().AttrOr("src", "")
	p.Link = AffiliateURL(opts.BaseURL, id, opts.PartnerTag)
	return p
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// digits reads "1.234" or "(2,345)" as a count.
func digits(s string) int {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	n, err := strconv.Atoi(clean)
	if err != nil {
		return 0
	}
	return n
}

// sales reads monthly purchase badges such as "10K+ comprados el mes pasado".
func sales(s string) int {
	s = strings.ToLower(s)
	if !strings.Contains(s, "compra") && !strings.Contains(s, "vendido") {
		return 0
	}
	m := salesNumber.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	if strings.Contains(s, "k") {
		n *= 1000
	}
	return n
}
