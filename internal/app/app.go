// Package app runs one selection cycle: load the state, fetch and rank every
// category, pick a deal, publish it and record the publication.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deusflow/ofertas/internal/deals"
	"github.com/deusflow/ofertas/internal/metrics"
	"github.com/deusflow/ofertas/internal/ranking"
	"github.com/deusflow/ofertas/internal/selection"
	"github.com/deusflow/ofertas/internal/storage"
	"github.com/deusflow/ofertas/internal/variants"
)

// Fetcher returns the current listing of a category.
type Fetcher interface {
	FetchCategory(ctx context.Context, cat deals.Category) ([]deals.Product, error)
}

// Publisher posts a selected deal. A nil error means it was published.
type Publisher interface {
	Publish(ctx context.Context, c deals.Candidate) error
}

// Options are the collaborators and settings of an App.
type Options struct {
	Categories []deals.Category
	Fetcher    Fetcher
	Publisher  Publisher
	Store      storage.Store
	Selector   *selection.Selector
	Ranker     *ranking.Ranker
	Logger     zerolog.Logger

	// DryRun selects a deal but neither publishes it nor saves the state.
	DryRun bool
}

// App runs selection cycles over a fixed category catalog.
type App struct {
	categories []deals.Category
	fetcher    Fetcher
	publisher  Publisher
	store      storage.Store
	selector   *selection.Selector
	ranker     *ranking.Ranker
	log        zerolog.Logger
	dryRun     bool
	now        func() time.Time
}

func New(opts Options) *App {
	return &App{
		categories: opts.Categories,
		fetcher:    opts.Fetcher,
		publisher:  opts.Publisher,
		store:      opts.Store,
		selector:   opts.Selector,
		ranker:     opts.Ranker,
		log:        opts.Logger,
		dryRun:     opts.DryRun,
		now:        time.Now,
	}
}

// Result summarizes a cycle.
type Result struct {
	CycleID   string
	Decision  selection.Decision
	Published bool

	Fetched int
	Failed  int
	Skipped int
}

// RunCycle performs one selection cycle. Categories that fail to fetch are
// left out. The state is saved only after a successful publish; a failed
// publish returns an error and leaves the stored state as it was.
func (a *App) RunCycle(ctx context.Context) (Result, error) {
	res := Result{CycleID: uuid.NewString()}
	log := a.log.With().Str("cycle_id", res.CycleID).Logger()
	start := time.Now()

	metrics.Global.IncrementCycles()
	defer func() {
		metrics.Global.RecordProcessingTime(time.Since(start))
	}()

	now := a.now()
	log.Info().Int("categories", len(a.categories)).Bool("dry_run", a.dryRun).Msg("Selection cycle started")

	state, err := a.store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read selection state, starting from empty history")
	}
	if state == nil {
		state = deals.NewSelectionState()
	}
	log.Info().
		Int("posted_ids", len(state.PostedIDs)).
		Strs("recent_categories", state.RecentCategories).
		Int("recent_titles", len(state.RecentTitles)).
		Msg("Selection state loaded")

	var winners []deals.Candidate
	for _, cat := range a.categories {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if a.selector.Skip(cat, state, now) {
			res.Skipped++
			continue
		}

		ranked, err := a.rankCategory(ctx, cat, log)
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Str("category", cat.Name).Msg("Category fetch failed, skipping")
			continue
		}
		res.Fetched++

		if w, ok := a.selector.CategoryWinner(cat, ranked, state, now); ok {
			log.Info().
				Str("category", cat.Name).
				Str("id", w.Product.ID).
				Float64("discount", w.Product.DiscountPct).
				Int("variants", len(w.Product.Variants)).
				Msg("Category winner")
			winners = append(winners, w)
		}
	}

	res.Decision = a.selector.Choose(winners, state)
	if !res.Decision.Found {
		log.Info().
			Int("fetched", res.Fetched).
			Int("failed", res.Failed).
			Int("skipped", res.Skipped).
			Msg("No eligible deal this cycle")
		metrics.Global.SetLastRun()
		return res, nil
	}

	chosen := res.Decision.Candidate
	log.Info().
		Str("category", chosen.Category.Name).
		Str("id", chosen.Product.ID).
		Str("title", chosen.Product.Title).
		Float64("discount", chosen.Product.DiscountPct).
		Str("price", chosen.Product.Price).
		Str("link", chosen.Product.Link).
		Bool("fell_back", res.Decision.FellBack).
		Msg("Deal selected")

	if a.dryRun {
		log.Info().Msg("Dry run, nothing published")
		metrics.Global.SetLastRun()
		return res, nil
	}

	if err := a.publisher.Publish(ctx, chosen); err != nil {
		metrics.Global.RecordPublish(false)
		metrics.Global.SetError(err.Error())
		return res, fmt.Errorf("publish %s: %w", chosen.Product.ID, err)
	}
	res.Published = true
	metrics.Global.RecordPublish(true)

	state.RecordPublish(chosen, a.now())
	if err := a.store.Save(ctx, state); err != nil {
		metrics.Global.SetError(err.Error())
		return res, fmt.Errorf("save state after publishing %s: %w", chosen.Product.ID, err)
	}

	log.Info().Str("id", chosen.Product.ID).Msg("Deal published and state saved")
	metrics.Global.SetLastRun()
	return res, nil
}

// rankCategory fetches cat and returns its deals with variants merged, best
// first.
func (a *App) rankCategory(ctx context.Context, cat deals.Category, log zerolog.Logger) ([]deals.Candidate, error) {
	products, err := a.fetcher.FetchCategory(ctx, cat)
	if err != nil {
		return nil, err
	}

	eligible := ranking.Eligible(deals.Candidates(cat, products))
	metrics.Global.AddScraped(cat.Name, len(products), len(eligible))

	grouped := variants.Group(eligible)
	ranked := a.ranker.Rank(grouped)

	log.Debug().
		Str("category", cat.Name).
		Int("products", len(products)).
		Int("deals", len(eligible)).
		Int("groups", len(grouped)).
		Msg("Category ranked")
	return ranked, nil
}

// IsCorruptState reports whether err came from an unreadable state document.
func IsCorruptState(err error) bool {
	return errors.Is(err, storage.ErrCorruptState)
}
