package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/extract"
	"github.com/dbsmedya/catalogsync/internal/graph"
	"github.com/dbsmedya/catalogsync/internal/logger"
	"github.com/dbsmedya/catalogsync/internal/target"
)

// Store is the part of the live store the synchronizer needs.
type Store interface {
	LoadCategories(ctx context.Context) ([]target.Entity, error)
	LoadProducts(ctx context.Context) ([]target.Entity, error)
	LoadAssociations(ctx context.Context) (map[target.Association]struct{}, error)
	InsertAssociation(ctx context.Context, a target.Association) (bool, error)
}

// Options control matching and batching.
type Options struct {
	Matching   config.MatchingConfig
	Processing config.ProcessingConfig
	DryRun     bool
}

// Synchronizer creates missing associations in the live store.
type Synchronizer struct {
	store  Store
	opts   Options
	logger *logger.Logger
}

type pendingLink struct {
	link     target.Association
	category *CategoryOutcome
	product  string
}

type linkResult struct {
	created bool
	err     error
}

// targetState is the live data loaded once per run.
type targetState struct {
	categories *Matcher
	products   *Matcher
	existing   map[target.Association]struct{}
	byID       []target.Entity
}

// New creates a Synchronizer.
func New(store Store, opts Options, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.NewDefault()
	}
	if opts.Processing.BatchSize <= 0 {
		opts.Processing.BatchSize = 500
	}
	if opts.Processing.Concurrency <= 0 {
		opts.Processing.Concurrency = 1
	}
	return &Synchronizer{store: store, opts: opts, logger: log.WithStage("sync")}
}

func (s *Synchronizer) load(ctx context.Context) (*targetState, error) {
	categories, err := s.store.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.store.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.LoadAssociations(ctx)
	if err != nil {
		return nil, err
	}

	m := s.opts.Matching
	st := &targetState{
		categories: NewMatcher("category", categories, m.LocaleSuffixes, m.ContainsFallback, s.logger),
		products:   NewMatcher("product", products, m.LocaleSuffixes, m.ContainsFallback, s.logger),
		existing:   existing,
		byID:       products,
	}
	s.logger.Infow("Loaded target store",
		"categories", len(categories),
		"products", len(products),
		"associations", len(existing),
	)
	return st, nil
}

// SyncGraph links every resolvable (category, product) pair of g.
// Unresolved names are recorded, never fatal. An error is returned only
// when the live data cannot be loaded or ctx is cancelled; in the latter
// case the outcome so far is returned too.
func (s *Synchronizer) SyncGraph(ctx context.Context, g *graph.Graph) (*Outcome, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load target store: %w", err)
	}

	b := newOutcomeBuilder(s.opts.DryRun)
	planned := make(map[target.Association]struct{})
	var pending []pendingLink

	for _, category := range g.Categories() {
		products := g.Products(category)
		co, _ := b.category(category)
		co.TargetID, co.Match = st.categories.Resolve(category)
		if !co.Resolved() {
			s.logger.Warnw("Category not found in target", "category", category, "products", len(products))
			continue
		}
		if co.Match != MatchExact {
			b.out.FuzzyMatches++
		}

		for _, product := range products {
			productID, kind := st.products.Resolve(product)
			if kind == MatchNone {
				co.Unresolved = append(co.Unresolved, product)
				b.out.UnresolvedProducts++
				continue
			}
			if kind != MatchExact {
				b.out.FuzzyMatches++
			}
			pending = s.plan(pending, st, planned, b.out, co, product, target.Association{CategoryID: co.TargetID, ProductID: productID})
		}
	}

	return s.finish(ctx, b.out, pending)
}

// ParseLegacyID extracts the trailing run of digits of a product reference,
// so "LEG-109" yields 109.
func ParseLegacyID(reference string) (int64, bool) {
	end := len(reference)
	start := end
	for start > 0 && reference[start-1] >= '0' && reference[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	id, err := strconv.ParseInt(reference[start:end], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// SyncByLegacyID walks live products instead of the graph. Each product's
// reference suffix names its legacy product, whose legacy categories are
// resolved by name through idx. skip drops placeholder categories.
func (s *Synchronizer) SyncByLegacyID(ctx context.Context, idx *extract.Indices, skip func(name string) bool) (*Outcome, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load target store: %w", err)
	}

	b := newOutcomeBuilder(s.opts.DryRun)
	planned := make(map[target.Association]struct{})
	var pending []pendingLink
	categoriesOf := idx.Adjacency.Invert()

	for _, product := range st.byID {
		legacyID, ok := ParseLegacyID(product.Reference)
		if !ok {
			b.out.Unlinked = append(b.out.Unlinked, product.Name)
			continue
		}
		legacyCategories := categoriesOf[legacyID]
		if len(legacyCategories) == 0 {
			b.out.Unlinked = append(b.out.Unlinked, product.Name)
			continue
		}

		for _, legacyCategoryID := range legacyCategories {
			name, ok := idx.Categories.Lookup(legacyCategoryID)
			if !ok || (skip != nil && skip(name)) {
				continue
			}
			co, fresh := b.category(name)
			if fresh {
				co.TargetID, co.Match = st.categories.Resolve(name)
				if !co.Resolved() {
					s.logger.Warnw("Category not found in target", "category", name)
				} else if co.Match != MatchExact {
					b.out.FuzzyMatches++
				}
			}
			if !co.Resolved() {
				co.Unresolved = append(co.Unresolved, product.Name)
				b.out.UnresolvedProducts++
				continue
			}
			pending = s.plan(pending, st, planned, b.out, co, product.Name, target.Association{CategoryID: co.TargetID, ProductID: product.ID})
		}
	}

	return s.finish(ctx, b.out, pending)
}

func (s *Synchronizer) plan(pending []pendingLink, st *targetState, planned map[target.Association]struct{}, out *Outcome, co *CategoryOutcome, product string, link target.Association) []pendingLink {
	if _, ok := st.existing[link]; ok {
		co.AlreadyPresent++
		out.AlreadyPresent++
		return pending
	}
	if _, ok := planned[link]; ok {
		return pending
	}
	planned[link] = struct{}{}
	return append(pending, pendingLink{link: link, category: co, product: product})
}

func (s *Synchronizer) finish(ctx context.Context, out *Outcome, pending []pendingLink) (*Outcome, error) {
	if s.opts.DryRun {
		for _, p := range pending {
			p.category.Planned++
		}
		out.Planned = len(pending)
		s.logger.Infow("Dry run complete", "planned", out.Planned, "already_present", out.AlreadyPresent)
		return out, nil
	}

	err := s.apply(ctx, out, pending)
	s.logger.Infow("Synchronization complete",
		"created", out.Created,
		"already_present", out.AlreadyPresent,
		"failed", out.Failed,
		"unresolved_products", out.UnresolvedProducts,
		"unresolved_categories", len(out.UnresolvedCategories()),
		"fuzzy_matches", out.FuzzyMatches,
	)
	return out, err
}

// apply writes pending links in batches. Inside a batch at most
// Concurrency writes are in flight, and the next batch starts only after
// every write of the current one has settled.
func (s *Synchronizer) apply(ctx context.Context, out *Outcome, pending []pendingLink) error {
	size := s.opts.Processing.BatchSize
	batches := (len(pending) + size - 1) / size
	start := time.Now()

	for n := 0; n < batches; n++ {
		if err := ctx.Err(); err != nil {
			s.logger.Warnf("Synchronization interrupted: %v (%d of %d batches applied)", err, n, batches)
			return err
		}

		lo := n * size
		hi := lo + size
		if hi > len(pending) {
			hi = len(pending)
		}
		batch := pending[lo:hi]
		batchLogger := s.logger.WithBatch(n + 1)

		results := make([]linkResult, len(batch))
		var eg errgroup.Group
		eg.SetLimit(s.opts.Processing.Concurrency)
		for i := range batch {
			eg.Go(func() error {
				created, err := s.store.InsertAssociation(ctx, batch[i].link)
				results[i] = linkResult{created: created, err: err}
				return nil
			})
		}
		_ = eg.Wait()

		created := 0
		for i, r := range results {
			p := batch[i]
			switch {
			case r.err != nil:
				p.category.Failed++
				out.Failed++
				out.Failures = append(out.Failures, Failure{Category: p.category.Category, Product: p.product, Error: r.err.Error()})
				batchLogger.Warnw("Failed to create association", "category", p.category.Category, "product", p.product, "error", r.err)
			case r.created:
				p.category.Created++
				out.Created++
				created++
			default:
				p.category.AlreadyPresent++
				out.AlreadyPresent++
			}
		}

		batchLogger.Infof("Batch %d/%d complete: %d links, %d created", n+1, batches, len(batch), created)

		if n < batches-1 && s.opts.Processing.SleepSeconds > 0 {
			sleep := time.Duration(s.opts.Processing.SleepSeconds * float64(time.Second))
			batchLogger.Debugf("Sleeping for %v before next batch", sleep)
			select {
			case <-ctx.Done():
				s.logger.Warnf("Synchronization interrupted during sleep: %v", ctx.Err())
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}

	if batches > 0 {
		s.logger.Infof("Applied %d batches in %s", batches, time.Since(start))
	}
	return nil
}
