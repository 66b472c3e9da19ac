package selection

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/ranking"
)

var (
	now = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	toys     = deals.Category{Name: "Juguetes", Emoji: "🧸", CheckSimilarTitles: true}
	chairs   = deals.Category{Name: "Tronas", Emoji: "🪑", WeeklyLimit: true}
	diapers  = deals.Category{Name: "Panales", Emoji: "🧷"}
	bottles  = deals.Category{Name: "Biberones", Emoji: "🍼"}
	monitors = deals.Category{Name: "Vigilabebes", Emoji: "📹"}
)

func newSelector(allowed ...string) *Selector {
	policy := DefaultPolicy()
	policy.AlwaysAllowed = allowed
	return New(policy, ranking.NewBrandMatcher([]string{"dodot", "suavinex"}), zerolog.Nop())
}

func cand(cat deals.Category, id, title string, discount float64) deals.Candidate {
	return deals.Candidate{
		Product: deals.Product{
			ID:          id,
			Title:       title,
			DiscountPct: discount,
			HasDeal:     true,
		},
		Category: cat,
	}
}

func TestCategoryWinnerDuplicateWindow(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.PostedIDs["B001"] = now.Add(-time.Hour)
	state.PostedIDs["B002"] = now.Add(-72 * time.Hour)

	w, ok := s.CategoryWinner(bottles, []deals.Candidate{
		cand(bottles, "B001", "Biberón anticólicos", 40),
		cand(bottles, "B002", "Tetina silicona", 30),
	}, state, now)

	require.True(t, ok)
	assert.Equal(t, "B002", w.Product.ID)
}

func TestCategoryWinnerAllRecentlyPosted(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.PostedIDs["B001"] = now.Add(-time.Hour)

	_, ok := s.CategoryWinner(bottles, []deals.Candidate{
		cand(bottles, "B001", "Biberón anticólicos", 40),
	}, state, now)

	assert.False(t, ok)
}

func TestCategoryWinnerSimilarTitle(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.RecentTitles = []string{"Peluche Oso Panda Gigante Suave"}

	w, ok := s.CategoryWinner(toys, []deals.Candidate{
		cand(toys, "NEW1", "Peluche Oso Panda Gigante", 50),
		cand(toys, "NEW2", "Sonajero musical colores", 20),
	}, state, now)

	require.True(t, ok)
	assert.Equal(t, "NEW2", w.Product.ID)
}

func TestCategoryWinnerSimilarTitleIgnoredWithoutFlag(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.RecentTitles = []string{"Biberón anticólicos cristal"}

	w, ok := s.CategoryWinner(bottles, []deals.Candidate{
		cand(bottles, "NEW1", "Biberón anticólicos cristal", 50),
	}, state, now)

	require.True(t, ok)
	assert.Equal(t, "NEW1", w.Product.ID)
}

func TestCategoryWinnerSkipsMissingID(t *testing.T) {
	s := newSelector()

	w, ok := s.CategoryWinner(bottles, []deals.Candidate{
		cand(bottles, "", "Sin identificador", 90),
		cand(bottles, "B003", "Biberón", 10),
	}, nil, now)

	require.True(t, ok)
	assert.Equal(t, "B003", w.Product.ID)
}

func TestSkipWeeklyLimit(t *testing.T) {
	s := newSelector()

	recent := deals.NewSelectionState()
	recent.WeeklyCategories[chairs.Name] = now.Add(-2 * 24 * time.Hour)
	assert.True(t, s.Skip(chairs, recent, now))

	old := deals.NewSelectionState()
	old.WeeklyCategories[chairs.Name] = now.Add(-8 * 24 * time.Hour)
	assert.False(t, s.Skip(chairs, old, now))

	assert.False(t, s.Skip(chairs, deals.NewSelectionState(), now))
}

func TestSkipIgnoresCategoriesWithoutLimit(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.WeeklyCategories[bottles.Name] = now.Add(-time.Hour)

	assert.False(t, s.Skip(bottles, state, now))
}

func TestSelectSkipsWeeklyLimitedPool(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.WeeklyCategories[chairs.Name] = now.Add(-2 * 24 * time.Hour)

	d := s.Select([]Pool{
		{Category: chairs, Ranked: []deals.Candidate{cand(chairs, "T1", "Trona evolutiva", 60)}},
		{Category: bottles, Ranked: []deals.Candidate{cand(bottles, "B1", "Biberón", 20)}},
	}, state, now)

	require.True(t, d.Found)
	assert.Equal(t, "B1", d.Candidate.Product.ID)
	assert.Len(t, d.Ranking, 1)
}

func TestSelectPrefersNonRecentCategory(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.RecentCategories = []string{bottles.Name}

	d := s.Select([]Pool{
		{Category: bottles, Ranked: []deals.Candidate{cand(bottles, "A1", "Biberón", 50)}},
		{Category: monitors, Ranked: []deals.Candidate{cand(monitors, "B1", "Vigilabebés vídeo", 30)}},
	}, state, now)

	require.True(t, d.Found)
	assert.Equal(t, "B1", d.Candidate.Product.ID)
	assert.False(t, d.FellBack)
	require.NotNil(t, d.Displaced)
	assert.Equal(t, "A1", d.Displaced.Product.ID)
}

func TestSelectFallsBackToGlobalFirst(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.RecentCategories = []string{bottles.Name, monitors.Name}

	d := s.Select([]Pool{
		{Category: monitors, Ranked: []deals.Candidate{cand(monitors, "B1", "Vigilabebés vídeo", 30)}},
		{Category: bottles, Ranked: []deals.Candidate{cand(bottles, "A1", "Biberón", 50)}},
	}, state, now)

	require.True(t, d.Found)
	assert.Equal(t, "A1", d.Candidate.Product.ID)
	assert.True(t, d.FellBack)
	assert.Nil(t, d.Displaced)
}

func TestSelectAlwaysAllowedIgnoresRecency(t *testing.T) {
	s := newSelector(diapers.Name)
	state := deals.NewSelectionState()
	state.RecentCategories = []string{diapers.Name}

	d := s.Select([]Pool{
		{Category: diapers, Ranked: []deals.Candidate{cand(diapers, "D1", "Pañales talla 4", 45)}},
		{Category: bottles, Ranked: []deals.Candidate{cand(bottles, "A1", "Biberón", 30)}},
	}, state, now)

	require.True(t, d.Found)
	assert.Equal(t, "D1", d.Candidate.Product.ID)
	assert.Nil(t, d.Displaced)
}

func TestSelectNoCandidates(t *testing.T) {
	s := newSelector()

	d := s.Select([]Pool{
		{Category: bottles},
		{Category: monitors, Ranked: nil},
	}, deals.NewSelectionState(), now)

	assert.False(t, d.Found)
	assert.Empty(t, d.Ranking)
}

func TestChooseGlobalOrderUsesBrandOnEqualDiscount(t *testing.T) {
	s := newSelector()

	d := s.Choose([]deals.Candidate{
		cand(bottles, "A1", "Biberón genérico", 30),
		cand(diapers, "D1", "Pañales Dodot", 30),
		cand(monitors, "M1", "Vigilabebés", 10),
	}, deals.NewSelectionState())

	require.Len(t, d.Ranking, 3)
	assert.Equal(t, "D1", d.Ranking[0].Product.ID)
	assert.Equal(t, "A1", d.Ranking[1].Product.ID)
	assert.Equal(t, "M1", d.Ranking[2].Product.ID)
}

func TestChooseGlobalOrderIsStable(t *testing.T) {
	s := newSelector()

	d := s.Choose([]deals.Candidate{
		cand(bottles, "A1", "Biberón", 30),
		cand(monitors, "M1", "Vigilabebés", 30),
	}, nil)

	assert.Equal(t, "A1", d.Candidate.Product.ID)
}

func TestSelectDoesNotMutateState(t *testing.T) {
	s := newSelector()
	state := deals.NewSelectionState()
	state.RecentCategories = []string{bottles.Name}
	before := state.Clone()

	s.Select([]Pool{
		{Category: bottles, Ranked: []deals.Candidate{cand(bottles, "A1", "Biberón", 50)}},
	}, state, now)

	assert.Equal(t, before, state)
}
