package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dbsmedya/catalogsync/internal/codegen"
	"github.com/dbsmedya/catalogsync/internal/dump"
	"github.com/dbsmedya/catalogsync/internal/extract"
	"github.com/dbsmedya/catalogsync/internal/graph"
	"github.com/dbsmedya/catalogsync/internal/reconcile"
)

func count(n int) string {
	return humanize.Comma(int64(n))
}

func count64(n int64) string {
	return humanize.Comma(n)
}

// Extraction prints the result of one pass over the dump.
func (p *Printer) Extraction(read *dump.Stats, rows extract.Stats, build graph.BuildStats, location string) {
	p.Header("Extraction Complete")

	p.Section("Dump")
	p.KV(12, "Lines", count64(read.Lines))
	p.KV(12, "Size", humanize.Bytes(uint64(read.Bytes)))
	p.KV(12, "Statements", count64(read.Statements))
	p.KV(12, "Tuples", count64(read.Tuples))
	p.KV(12, "Duration", read.Duration.Round(time.Millisecond))

	p.Section("Tables")
	tables := make([]string, 0, len(rows))
	for table := range rows {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	t := NewTable([]string{"Table", "Rows", "Applied", "Skipped"}, 1, 2, 3)
	for _, table := range tables {
		st := rows[table]
		t.Append(table, count64(st.Rows), count64(st.Applied), count64(st.Skipped))
	}
	p.Table(t)

	p.Section("Graph")
	p.KV(20, "Categories", count(build.Categories))
	p.KV(20, "Pairs", count(build.Pairs))
	p.KV(20, "Merged by name", count(build.MergedCategories))
	p.KV(20, "Unnamed skipped", count(build.UnnamedCategories))
	p.KV(20, "Reserved skipped", count(build.ReservedCategories))
	p.KV(20, "Empty dropped", count(build.EmptyCategories))
	p.KV(20, "Unresolved products", count(build.UnresolvedProducts))

	if location != "" {
		fmt.Fprintln(p.w)
		p.Status(LevelOK, "Snapshot written to %s", location)
	}
}

// Sync prints a synchronization outcome. At most maxUnresolved product
// names are listed per category.
func (p *Printer) Sync(out *reconcile.Outcome, maxUnresolved int) {
	if out.DryRun {
		p.Header("Synchronization Plan (dry run)")
	} else {
		p.Header("Synchronization Complete")
	}

	p.Section("Totals")
	if out.DryRun {
		p.KV(20, "Planned", count(out.Planned))
	} else {
		p.KV(20, "Created", count(out.Created))
	}
	p.KV(20, "Already present", count(out.AlreadyPresent))
	p.KV(20, "Failed", count(out.Failed))
	p.KV(20, "Unresolved products", count(out.UnresolvedProducts))
	p.KV(20, "Unresolved categories", count(len(out.UnresolvedCategories())))
	p.KV(20, "Fuzzy matches", count(out.FuzzyMatches))

	if len(out.Categories) > 0 {
		p.Section("Categories")
		t := NewTable([]string{"Category", "Target", "Match", "Created", "Planned", "Present", "Failed", "Unresolved"}, 1, 3, 4, 5, 6, 7)
		for _, c := range out.Categories {
			target := "-"
			if c.Resolved() {
				target = fmt.Sprint(c.TargetID)
			}
			t.Append(c.Category, target, c.Match.String(),
				count(c.Created), count(c.Planned), count(c.AlreadyPresent), count(c.Failed), count(len(c.Unresolved)))
		}
		p.Table(t)
	}

	var unresolved []*reconcile.CategoryOutcome
	for _, c := range out.Categories {
		if c.Resolved() && len(c.Unresolved) > 0 {
			unresolved = append(unresolved, c)
		}
	}
	if len(unresolved) > 0 {
		p.Section("Unresolved Products")
		for _, c := range unresolved {
			p.Item("%s: %s", c.Category, truncateList(c.Unresolved, maxUnresolved))
		}
	}

	if names := out.UnresolvedCategories(); len(names) > 0 {
		p.Section("Unresolved Categories")
		for _, name := range names {
			p.Status(LevelWarn, "%s", name)
		}
	}

	if len(out.Unlinked) > 0 {
		p.Section("Products Without Legacy Category")
		p.Item("%s", truncateList(out.Unlinked, maxUnresolved))
	}

	if len(out.Failures) > 0 {
		p.Section("Failures")
		for _, f := range out.Failures {
			p.Status(LevelFail, "%s / %s: %s", f.Category, f.Product, f.Error)
		}
	}
}

// Verification prints the post-run association count check.
func (p *Printer) Verification(v *reconcile.Verification) {
	p.Section("Verification")
	p.KV(20, "Links before", count64(v.Before))
	p.KV(20, "Links after", count64(v.After))
	if v.Match {
		p.Status(LevelOK, "Association count grew by %s", count(v.Created))
	} else {
		p.Status(LevelWarn, "%s", v.Message)
	}
}

// Codes prints a code assignment report.
func (p *Printer) Codes(r *codegen.Report) {
	if r.DryRun {
		p.Header("Code Assignment Plan (dry run): %s", r.Column)
	} else {
		p.Header("Code Assignment Complete: %s", r.Column)
	}

	p.Section("Totals")
	p.KV(16, "Rows without code", count(r.Candidates))
	p.KV(16, "Assigned", count(len(r.Assigned)))
	p.KV(16, "Filled elsewhere", count(r.Skipped))
	p.KV(16, "Failed", count(len(r.Failures)))

	if r.DryRun && len(r.Assigned) > 0 {
		p.Section("Sample Codes")
		t := NewTable([]string{"ID", "Code"}, 0)
		for i, a := range r.Assigned {
			if i == 10 {
				break
			}
			t.Append(fmt.Sprint(a.ID), a.Code)
		}
		p.Table(t)
	}

	if len(r.Failures) > 0 {
		p.Section("Failures")
		t := NewTable([]string{"ID", "Name", "Attempts", "Error"}, 0, 2)
		for _, f := range r.Failures {
			t.Append(fmt.Sprint(f.ID), f.Name, fmt.Sprint(f.Attempts), f.Err.Error())
		}
		p.Table(t)
	}
}

// Snapshot prints the categories of a reconstructed graph with a sample
// of their products.
func (p *Printer) Snapshot(g *graph.Graph, location string, sample int) {
	p.Header("Snapshot: %s", location)

	p.Section("Summary")
	p.KV(12, "Categories", count(g.Len()))
	p.KV(12, "Pairs", count(g.Pairs()))

	if g.Len() == 0 {
		return
	}
	p.Section("Categories")
	t := NewTable([]string{"Category", "Products", "Sample"}, 1)
	for _, category := range g.Categories() {
		products := g.Products(category)
		t.Append(category, count(len(products)), truncateList(products, sample))
	}
	p.Table(t)
}

// Check is one line of a validation report.
type Check struct {
	Name   string
	Level  Level
	Detail string
}

// Checks prints validation results and reports whether all passed.
func (p *Printer) Checks(title string, checks []Check) bool {
	p.Header("%s", title)
	fmt.Fprintln(p.w)
	ok := true
	for _, c := range checks {
		if c.Detail != "" {
			p.Status(c.Level, "%s: %s", c.Name, c.Detail)
		} else {
			p.Status(c.Level, "%s", c.Name)
		}
		if c.Level == LevelFail {
			ok = false
		}
	}
	return ok
}

func truncateList(items []string, max int) string {
	if max <= 0 || len(items) <= max {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:max], ", "), len(items)-max)
}
