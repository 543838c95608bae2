// Package engine owns the loaded datasets and recomputes the filtered view
// and its metrics for a selection. Originals are kept immutable; every
// recompute starts from them, so applying a selection is repeatable.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/evinicim/metalab-insights/internal/category"
	"github.com/evinicim/metalab-insights/internal/config"
	"github.com/evinicim/metalab-insights/internal/dataset"
	"github.com/evinicim/metalab-insights/internal/filter"
	"github.com/evinicim/metalab-insights/internal/metrics"
	"github.com/evinicim/metalab-insights/internal/pivot"
	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
)

// Engine holds the preprocessed originals and the per-concern engines.
type Engine struct {
	rules   roles.Ruleset
	filters *filter.Engine
	metrics *metrics.Engine
	pivots  *pivot.Engine

	students    *table.Table
	enrollments *table.Table
	evaluations *table.Table
}

// Result is one recomputed view: the filtered tables plus the derived
// metrics over them.
type Result struct {
	Selection filter.Selection

	Students    *table.Table
	Enrollments *table.Table
	Evaluations *table.Table

	StatusTally []metrics.StatusRow
	AgeBuckets  []metrics.Bucket
	Income      []metrics.Bucket
	Genders     []metrics.Bucket
	Races       []metrics.Bucket
	Channels    []metrics.Bucket
	Monthly     []metrics.Bucket

	CourseEvals  []metrics.Bucket
	TeacherEvals []metrics.Bucket
}

// Options lists the selectable values per filter dimension, computed from
// the unfiltered originals so the choices stay stable while filtering.
type Options struct {
	Cycles    []string
	Locations []string
	Statuses  []string
	Genders   []string
}

// New builds an engine with the given vocabulary.
func New(rules roles.Ruleset, regions, identityKeywords []string) *Engine {
	f := filter.New(rules)
	if len(regions) > 0 {
		f.Regions = regions
	}
	if len(identityKeywords) > 0 {
		f.IdentityKeywords = identityKeywords
	}
	return &Engine{
		rules:   rules,
		filters: f,
		metrics: metrics.New(rules),
		pivots:  pivot.New(rules),
	}
}

// Load preprocesses and stores the three datasets. Any table may be nil;
// missing datasets simply disable the views that need them. The student
// table gains a normalized status column and a long-format evaluation table
// is pivoted to wide.
func (e *Engine) Load(students, enrollments, evaluations *table.Table) {
	e.students = e.normalizeStatus(students)
	e.enrollments = enrollments
	if evaluations != nil {
		evaluations = e.pivots.Pivot(evaluations)
	}
	e.evaluations = evaluations
}

// LoadSources reads the datasets named by the configuration, local or
// remote, and loads them. A missing source is skipped; a source that fails
// to load is an error.
func (e *Engine) LoadSources(ctx context.Context, cfg *config.Global) error {
	load := func(name string, src config.Source) (*table.Table, error) {
		if src.IsZero() {
			return nil, nil
		}
		opt := dataset.DefaultOptions()
		if cfg.MaxRows > 0 {
			opt.MaxRows = cfg.MaxRows
		}
		if cfg.HTTPTimeoutSec > 0 {
			opt.Timeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if url := src.ExportURL(); url != "" {
			return dataset.Fetch(ctx, name, url, opt)
		}
		opt.Sheet = src.Sheet
		return dataset.ReadFile(src.Path, opt)
	}

	students, err := load("alunos", cfg.Students)
	if err != nil {
		return fmt.Errorf("load students: %w", err)
	}
	enrollments, err := load("inscricoes", cfg.Enrollments)
	if err != nil {
		return fmt.Errorf("load enrollments: %w", err)
	}
	evaluations, err := load("avaliacoes", cfg.Evaluations)
	if err != nil {
		return fmt.Errorf("load evaluations: %w", err)
	}
	e.Load(students, enrollments, evaluations)
	return nil
}

// normalizeStatus appends the canonical status column. Tables without any
// status column get SEM STATUS everywhere so the tally still covers every
// row.
func (e *Engine) normalizeStatus(students *table.Table) *table.Table {
	if students == nil || students.HasColumn(category.NormalizedStatusColumn) {
		return students
	}
	values := make([]string, students.NumRows())
	if col, ok := e.rules.Resolve(students.Columns, roles.Status); ok {
		idx := students.ColumnIndex(col)
		for i, row := range students.Rows {
			values[i] = category.NormalizeStatus(row[idx]).Label
		}
	} else {
		for i := range values {
			values[i] = category.StatusSem
		}
	}
	return students.WithColumn(category.NormalizedStatusColumn, values)
}

// Students returns the preprocessed unfiltered student table.
func (e *Engine) Students() *table.Table { return e.students }

// Enrollments returns the unfiltered enrollment table.
func (e *Engine) Enrollments() *table.Table { return e.enrollments }

// Evaluations returns the pivoted unfiltered evaluation table.
func (e *Engine) Evaluations() *table.Table { return e.evaluations }

// Recompute applies the selection to the originals and derives the metrics.
func (e *Engine) Recompute(sel filter.Selection) *Result {
	students, enrollments := e.students, e.enrollments
	if students == nil {
		students = table.New("alunos", nil)
	}
	if enrollments == nil {
		enrollments = table.New("inscricoes", nil)
	}
	fs, fe := e.filters.Apply(students, enrollments, sel)

	var fev *table.Table
	if e.evaluations != nil {
		fev = e.filters.ApplyEvaluations(e.evaluations, fs, fe, students, enrollments, sel.Cycle)
	}

	res := &Result{
		Selection:   sel,
		Students:    fs,
		Enrollments: fe,
		Evaluations: fev,
		StatusTally: e.metrics.StatusTally(fs, fs.NumRows()),
		AgeBuckets:  e.metrics.AgeBuckets(fs),
		Income:      e.metrics.IncomeDistribution(fe),
		Genders:     e.metrics.CategoryCounts(fe, roles.Gender),
		Races:       e.metrics.CategoryCounts(fe, roles.Race),
		Channels:    e.metrics.CategoryCounts(fe, roles.Channel),
		Monthly:     e.metrics.MonthlyCounts(fe),
	}
	if len(res.Income) == 0 {
		res.Income = e.metrics.IncomeDistribution(fs)
	}
	if fev != nil {
		res.CourseEvals = e.metrics.CategoryCounts(fev, roles.CourseEval)
		res.TeacherEvals = e.metrics.CategoryCounts(fev, roles.TeacherEval)
		// Some intakes ask "how did you hear about us" on the evaluation
		// survey instead of the enrollment form.
		if len(res.Channels) == 0 {
			res.Channels = e.metrics.CategoryCounts(fev, roles.Channel)
		}
	}
	return res
}

// FilterOptions lists the selectable filter values, each dimension headed by
// the unrestricted sentinel.
func (e *Engine) FilterOptions() Options {
	opts := Options{
		Cycles:   []string{filter.All},
		Statuses: []string{filter.All},
		Genders:  []string{filter.All},
	}
	opts.Locations = []string{filter.All}

	if e.students != nil {
		if col, ok := e.rules.Resolve(e.students.Columns, roles.Cycle); ok {
			opts.Cycles = append(opts.Cycles, e.students.DistinctValues(col)...)
		}
		if col, ok := e.rules.Resolve(e.students.Columns, roles.Local); ok {
			opts.Locations = append(opts.Locations, e.students.DistinctValues(col)...)
		}
		opts.Statuses = append(opts.Statuses,
			category.StatusCursando, category.StatusConcluido, category.StatusUnion)
	}
	if e.enrollments != nil {
		if col, ok := e.rules.Resolve(e.enrollments.Columns, roles.Gender); ok {
			opts.Genders = append(opts.Genders, e.enrollments.DistinctValues(col)...)
		}
	}
	return opts
}
