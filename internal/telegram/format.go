package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/similarity"
)

const defaultEmoji = "🛍️"

// FormatMessage renders the HTML post for c. A product with variants gets
// one linked price line per version instead of the single store link.
func FormatMessage(c deals.Candidate) string {
	p := c.Product
	emoji := c.Category.Emoji
	if emoji == "" {
		emoji = defaultEmoji
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>OFERTA %s</b> %s\n\n", emoji, strings.ToUpper(c.Category.Name), emoji)
	fmt.Fprintf(&b, "📦 <b>%s</b>\n\n", html.EscapeString(p.Title))

	if !p.HasVariants() {
		fmt.Fprintf(&b, "💰 Precio: %s\n", priceText(p.Price, p.PreviousPrice, p.DiscountPct))
		fmt.Fprintf(&b, "\n🛒 <a href='%s'>Ver en Amazon</a>", html.EscapeString(p.Link))
		return b.String()
	}

	versions := append([]deals.Variant{p.AsVariant()}, p.Variants...)
	for i, v := range versions {
		fmt.Fprintf(&b, "🛒 <a href='%s'>%s</a>: %s\n",
			html.EscapeString(v.Link),
			html.EscapeString(versionLabel(v.Title, i)),
			priceText(v.Price, v.PreviousPrice, v.DiscountPct))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func priceText(price, previous string, discount float64) string {
	if previous == "" {
		return fmt.Sprintf("<b>%s</b>", html.EscapeString(price))
	}
	if discount <= 0 {
		discount = deals.DiscountPct(price, previous)
	}
	out := fmt.Sprintf("<s>%s</s> → <b>%s</b>", html.EscapeString(previous), html.EscapeString(price))
	if discount > 0 {
		out += fmt.Sprintf(" (-%.0f%%)", discount)
	}
	return out
}

// versionLabel names a version by its platform, color or size words, or by
// its position when the title has none.
func versionLabel(title string, i int) string {
	if markers := similarity.Markers(title); len(markers) > 0 {
		return strings.Join(markers, " ")
	}
	return fmt.Sprintf("Opción %d", i+1)
}
