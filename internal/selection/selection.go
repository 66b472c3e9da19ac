// Package selection applies the anti-repetition rules across categories and
// picks the single deal to publish in a cycle.
package selection

import (
	"cmp"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/metrics"
	"github.com/deusflow/ofertas/internal/ranking"
	"github.com/deusflow/ofertas/internal/similarity"
)

// Category skip reasons reported to metrics.
const (
	SkipWeeklyLimit = "weekly_limit"
	SkipNoCandidate = "no_candidate"
)

// Policy holds the time windows and exemptions the selector enforces.
type Policy struct {
	// DuplicateWindow is how long a published id stays blocked.
	DuplicateWindow time.Duration
	// WeeklyCooldown separates two publications of a weekly-limited category.
	WeeklyCooldown time.Duration
	// AlwaysAllowed categories ignore the recent categories window.
	AlwaysAllowed []string
}

// DefaultPolicy returns the 48 hour duplicate window and 7 day cooldown with
// no exempt categories.
func DefaultPolicy() Policy {
	return Policy{
		DuplicateWindow: deals.DefaultDuplicateWindow,
		WeeklyCooldown:  deals.DefaultWeeklyCooldown,
	}
}

// Pool is the ranked, variant-grouped listing of one category.
type Pool struct {
	Category deals.Category
	Ranked   []deals.Candidate
}

// Decision is the outcome of one selection.
type Decision struct {
	Candidate deals.Candidate
	Found     bool

	// Ranking is every category winner, best first.
	Ranking []deals.Candidate
	// Displaced is the global #1 when it lost to the recent categories window.
	Displaced *deals.Candidate
	// FellBack is set when every winner was in a recent category and the
	// global #1 was taken anyway.
	FellBack bool
}

// Selector applies a Policy to ranked category pools and a selection state.
type Selector struct {
	policy  Policy
	brands  *ranking.BrandMatcher
	allowed map[string]struct{}
	log     zerolog.Logger
}

// New returns a selector. brands may be nil, in which case no title gets
// brand priority.
func New(policy Policy, brands *ranking.BrandMatcher, log zerolog.Logger) *Selector {
	allowed := make(map[string]struct{}, len(policy.AlwaysAllowed))
	for _, name := range policy.AlwaysAllowed {
		allowed[name] = struct{}{}
	}
	return &Selector{
		policy:  policy,
		brands:  brands,
		allowed: allowed,
		log:     log.With().Str("component", "selection").Logger(),
	}
}

// Skip reports whether cat is still in its weekly cooldown. Skipped
// categories need not be fetched.
func (s *Selector) Skip(cat deals.Category, state *deals.SelectionState, now time.Time) bool {
	if !cat.WeeklyLimit || state == nil {
		return false
	}
	remaining := state.WeeklyRemaining(cat.Name, now, s.policy.WeeklyCooldown)
	if remaining <= 0 {
		return false
	}

	s.log.Info().
		Str("category", cat.Name).
		Float64("days_left", remaining.Hours()/24).
		Msg("Category skipped by weekly limit")
	metrics.Global.IncrementCategorySkipped(SkipWeeklyLimit)
	return true
}

// CategoryWinner returns the first ranked candidate of cat that was not
// published within the duplicate window and, when cat checks titles, does not
// resemble a recently published title.
func (s *Selector) CategoryWinner(cat deals.Category, ranked []deals.Candidate, state *deals.SelectionState, now time.Time) (deals.Candidate, bool) {
	if state == nil {
		state = deals.NewSelectionState()
	}

	for _, c := range ranked {
		if c.Product.ID == "" {
			continue
		}
		if state.PostedWithin(c.Product.ID, now, s.policy.DuplicateWindow) {
			s.discard(cat, c, metrics.ReasonRecentlyPosted)
			continue
		}
		if cat.CheckSimilarTitles && similarity.SimilarToRecent(c.Product.Title, state.RecentTitles) {
			s.discard(cat, c, metrics.ReasonSimilarTitle)
			continue
		}
		return c, true
	}

	metrics.Global.IncrementCategorySkipped(SkipNoCandidate)
	return deals.Candidate{}, false
}

func (s *Selector) discard(cat deals.Category, c deals.Candidate, reason string) {
	s.log.Debug().
		Str("category", cat.Name).
		Str("id", c.Product.ID).
		Str("title", c.Product.Title).
		Str("reason", reason).
		Msg("Candidate discarded")
	metrics.Global.IncrementDiscarded(reason)
}

// Choose ranks the category winners globally by discount and brand priority
// and takes the first one outside the recent categories window. Exempt
// categories always pass. When nothing passes the global #1 is taken.
func (s *Selector) Choose(winners []deals.Candidate, state *deals.SelectionState) Decision {
	if len(winners) == 0 {
		return Decision{}
	}
	if state == nil {
		state = deals.NewSelectionState()
	}

	ranked := s.globalRanking(winners)
	s.logRanking(ranked, state)

	for i, c := range ranked {
		if !s.blockedByRecency(c.Category.Name, state) {
			d := Decision{Candidate: c, Found: true, Ranking: ranked}
			if i > 0 {
				top := ranked[0]
				d.Displaced = &top
				s.log.Info().
					Str("displaced", top.Category.Name).
					Str("chosen", c.Category.Name).
					Float64("displaced_discount", top.Product.DiscountPct).
					Float64("chosen_discount", c.Product.DiscountPct).
					Msg("Global #1 belongs to a recent category, taking the next one")
			}
			return d
		}
	}

	s.log.Info().
		Str("category", ranked[0].Category.Name).
		Msg("Every winner is in a recent category, falling back to global #1")
	return Decision{Candidate: ranked[0], Found: true, Ranking: ranked, FellBack: true}
}

// Select runs the whole selection over pools that were fetched up front: it
// applies the weekly gate, picks each category winner and chooses among them.
// Callers that fetch per category call Skip before fetching and then
// CategoryWinner and Choose themselves, as app.RunCycle does.
func (s *Selector) Select(pools []Pool, state *deals.SelectionState, now time.Time) Decision {
	var winners []deals.Candidate
	for _, pool := range pools {
		if s.Skip(pool.Category, state, now) {
			continue
		}
		if w, ok := s.CategoryWinner(pool.Category, pool.Ranked, state, now); ok {
			winners = append(winners, w)
		}
	}
	return s.Choose(winners, state)
}

func (s *Selector) blockedByRecency(name string, state *deals.SelectionState) bool {
	if _, ok := s.allowed[name]; ok {
		return false
	}
	return state.CategoryRecent(name)
}

func (s *Selector) globalRanking(winners []deals.Candidate) []deals.Candidate {
	type keyed struct {
		c        deals.Candidate
		discount float64
		brand    int
	}

	items := make([]keyed, len(winners))
	for i, c := range winners {
		items[i] = keyed{c: c, discount: c.Product.DiscountPct, brand: s.brands.Priority(c.Product.Title)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return cmp.Or(
			cmp.Compare(b.discount, a.discount),
			cmp.Compare(b.brand, a.brand),
		)
	})

	out := make([]deals.Candidate, len(items))
	for i, it := range items {
		out[i] = it.c
	}
	return out
}

func (s *Selector) logRanking(ranked []deals.Candidate, state *deals.SelectionState) {
	if s.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	for i, c := range ranked {
		s.log.Debug().
			Int("position", i+1).
			Str("category", c.Category.Name).
			Str("id", c.Product.ID).
			Float64("discount", c.Product.DiscountPct).
			Bool("recent_category", s.blockedByRecency(c.Category.Name, state)).
			Msg("Global ranking")
	}
}
