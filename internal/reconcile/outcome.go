package reconcile

// CategoryOutcome is the result for one legacy category name.
type CategoryOutcome struct {
	Category       string
	TargetID       int64
	Match          MatchKind
	Created        int
	AlreadyPresent int
	Planned        int
	Failed         int
	Unresolved     []string
}

// Resolved reports whether the category matched a live category.
func (c *CategoryOutcome) Resolved() bool {
	return c.Match != MatchNone
}

// Failure records one association that could not be written.
type Failure struct {
	Category string
	Product  string
	Error    string
}

// Outcome summarises one synchronization run. Counts cover the whole run;
// per-category detail is kept in processing order.
type Outcome struct {
	DryRun     bool
	Categories []*CategoryOutcome

	Created            int
	AlreadyPresent     int
	Planned            int
	Failed             int
	FuzzyMatches       int
	UnresolvedProducts int

	// ID-driven runs only: products whose reference carries no legacy ID or
	// whose legacy ID has no category.
	Unlinked []string

	Failures []Failure
}

// UnresolvedCategories returns the names of categories with no live match.
func (o *Outcome) UnresolvedCategories() []string {
	var names []string
	for _, c := range o.Categories {
		if !c.Resolved() {
			names = append(names, c.Category)
		}
	}
	return names
}

type outcomeBuilder struct {
	out   *Outcome
	index map[string]*CategoryOutcome
}

func newOutcomeBuilder(dryRun bool) *outcomeBuilder {
	return &outcomeBuilder{
		out:   &Outcome{DryRun: dryRun},
		index: make(map[string]*CategoryOutcome),
	}
}

func (b *outcomeBuilder) category(name string) (*CategoryOutcome, bool) {
	if c, ok := b.index[name]; ok {
		return c, false
	}
	c := &CategoryOutcome{Category: name}
	b.index[name] = c
	b.out.Categories = append(b.out.Categories, c)
	return c, true
}
