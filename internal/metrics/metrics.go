// Package metrics derives summary counts from the filtered tables: the
// status tally, age distribution, income distribution, and generic category
// breakdowns.
package metrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evinicim/metalab-insights/internal/category"
	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
)

// Unclassified labels the residual tally row that absorbs the difference
// between the base total and the grouped counts, so the tally always sums to
// the base total.
const Unclassified = "OUTROS/NÃO CLASSIFICADOS"

// AgeBucketLabels are the age bands, in ascending order.
var AgeBucketLabels = []string{"Até 18", "19-25", "26-30", "31-35", "36-40", "41-45", "46-50", "51-60", "Acima de 60"}

// ageBucketUpper holds the inclusive upper bound of each band.
var ageBucketUpper = []int{18, 25, 30, 35, 40, 45, 50, 60, 100}

const (
	ageMin = 10
	ageMax = 100
)

// birthdateLayouts are tried in order. Brazilian day-first formats come
// before ISO.
var birthdateLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var digitsRe = regexp.MustCompile(`\d+`)

// StatusRow is one line of the status tally.
type StatusRow struct {
	Status     string
	Count      int
	TopCourses []string
}

// Bucket is a labeled count in a distribution.
type Bucket struct {
	Label string
	Count int
}

// Engine computes metrics over tables using a role ruleset. Now overrides
// the reference time for age calculation; zero means the wall clock.
type Engine struct {
	Rules roles.Ruleset
	Now   time.Time
}

// New returns an engine over the given ruleset.
func New(rules roles.Ruleset) *Engine {
	return &Engine{Rules: rules}
}

func (e *Engine) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

// StatusTally groups students by normalized status and counts them, largest
// group first, carrying the three most frequent courses per status when a
// course column exists. baseTotal is the unfiltered student count; any rows
// it has beyond the tally show up as an Unclassified residual so the tally
// conserves the total.
func (e *Engine) StatusTally(students *table.Table, baseTotal int) []StatusRow {
	if students == nil {
		return nil
	}
	statusIdx := students.ColumnIndex(category.NormalizedStatusColumn)
	rawIdx := -1
	if col, ok := e.Rules.Resolve(students.Columns, roles.Status); ok {
		rawIdx = students.ColumnIndex(col)
	}
	courseIdx := -1
	if col, ok := e.Rules.Resolve(students.Columns, roles.Course); ok {
		courseIdx = students.ColumnIndex(col)
	}

	counts := map[string]int{}
	courses := map[string]map[string]int{}
	for _, row := range students.Rows {
		var status string
		switch {
		case statusIdx >= 0:
			status = row[statusIdx]
		case rawIdx >= 0:
			status = category.NormalizeStatus(row[rawIdx]).Label
		default:
			status = category.StatusSem
		}
		counts[status]++
		if courseIdx >= 0 {
			if courses[status] == nil {
				courses[status] = map[string]int{}
			}
			if c := strings.TrimSpace(row[courseIdx]); c != "" {
				courses[status][c]++
			}
		}
	}

	rows := make([]StatusRow, 0, len(counts)+1)
	sum := 0
	for status, n := range counts {
		rows = append(rows, StatusRow{Status: status, Count: n, TopCourses: topN(courses[status], 3)})
		sum += n
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Status < rows[j].Status
	})
	if baseTotal > sum {
		rows = append(rows, StatusRow{Status: Unclassified, Count: baseTotal - sum})
	}
	return rows
}

func topN(counts map[string]int, n int) []string {
	if len(counts) == 0 {
		return nil
	}
	type kv struct {
		k string
		v int
	}
	all := make([]kv, 0, len(counts))
	for k, v := range counts {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].v != all[j].v {
			return all[i].v > all[j].v
		}
		return all[i].k < all[j].k
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = e.k
	}
	return out
}

// AgeBuckets distributes students into age bands. A direct age column wins
// when a sample of it parses to plausible ages; otherwise ages are computed
// from the birthdate column. Ages outside 10 to 100 are discarded and empty
// bands are omitted. Returns nil when no age can be derived.
func (e *Engine) AgeBuckets(students *table.Table) []Bucket {
	if students == nil || students.NumRows() == 0 {
		return nil
	}
	ages := e.directAges(students)
	if len(ages) == 0 {
		ages = e.birthdateAges(students)
	}
	if len(ages) == 0 {
		return nil
	}

	counts := make([]int, len(AgeBucketLabels))
	for _, age := range ages {
		for i, upper := range ageBucketUpper {
			if age <= upper {
				counts[i]++
				break
			}
		}
	}
	var out []Bucket
	for i, n := range counts {
		if n > 0 {
			out = append(out, Bucket{Label: AgeBucketLabels[i], Count: n})
		}
	}
	return out
}

// directAges reads ages from an age-role column, but only when a small
// sample of the column actually looks like ages. Non-numeric cells fall back
// to the first digit run in the text.
func (e *Engine) directAges(students *table.Table) []int {
	col, ok := e.Rules.Resolve(students.Columns, roles.Age)
	if !ok {
		return nil
	}
	idx := students.ColumnIndex(col)

	sampled, plausible := 0, false
	for _, row := range students.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		sampled++
		if age, ok := parseAge(v); ok && age >= ageMin && age <= ageMax {
			plausible = true
			break
		}
		if sampled >= 10 {
			break
		}
	}
	if !plausible {
		return nil
	}

	var ages []int
	for _, row := range students.Rows {
		if age, ok := parseAge(row[idx]); ok && age >= ageMin && age <= ageMax {
			ages = append(ages, age)
		}
	}
	return ages
}

func parseAge(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil {
		return int(f), true
	}
	if m := digitsRe.FindString(v); m != "" {
		n, err := strconv.Atoi(m)
		return n, err == nil
	}
	return 0, false
}

func (e *Engine) birthdateAges(students *table.Table) []int {
	col, ok := e.Rules.Resolve(students.Columns, roles.Birthdate)
	if !ok {
		return nil
	}
	idx := students.ColumnIndex(col)
	now := e.now()

	var ages []int
	for _, row := range students.Rows {
		born, ok := parseBirthdate(row[idx])
		if !ok {
			continue
		}
		age := now.Year() - born.Year()
		if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
			age--
		}
		if age >= ageMin && age <= ageMax {
			ages = append(ages, age)
		}
	}
	return ages
}

func parseBirthdate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IncomeDistribution counts students per normalized income bracket. Known
// brackets come first in ascending income order, unexpected labels after
// them by descending count.
func (e *Engine) IncomeDistribution(students *table.Table) []Bucket {
	col, ok := e.Rules.Resolve(students.Columns, roles.Income)
	if !ok || students.NumRows() == 0 {
		return nil
	}
	idx := students.ColumnIndex(col)

	counts := map[string]int{}
	for _, row := range students.Rows {
		if v, ok := category.NormalizeIncome(row[idx]); ok {
			counts[v.Label]++
		}
	}

	var out []Bucket
	for _, label := range category.IncomeBrackets {
		if n := counts[label]; n > 0 {
			out = append(out, Bucket{Label: label, Count: n})
			delete(counts, label)
		}
	}
	extras := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		extras = append(extras, Bucket{Label: label, Count: n})
	}
	sort.Slice(extras, func(i, j int) bool {
		if extras[i].Count != extras[j].Count {
			return extras[i].Count > extras[j].Count
		}
		return extras[i].Label < extras[j].Label
	})
	return append(out, extras...)
}

// CategoryCounts is the generic breakdown behind the race, channel, gender,
// and unit charts: distinct trimmed values of the role column by descending
// count. Empty cells are skipped.
func (e *Engine) CategoryCounts(t *table.Table, role roles.Role) []Bucket {
	col, ok := e.Rules.Resolve(t.Columns, role)
	if !ok {
		return nil
	}
	idx := t.ColumnIndex(col)

	counts := map[string]int{}
	for _, row := range t.Rows {
		if v := strings.TrimSpace(row[idx]); v != "" {
			counts[v]++
		}
	}
	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// MonthlyCounts buckets rows by the month of their timestamp column, in
// chronological order with YYYY-MM labels. Rows whose timestamp does not
// parse are skipped.
func (e *Engine) MonthlyCounts(t *table.Table) []Bucket {
	col, ok := e.Rules.Resolve(t.Columns, roles.Timestamp)
	if !ok {
		return nil
	}
	idx := t.ColumnIndex(col)

	counts := map[string]int{}
	for _, row := range t.Rows {
		ts, ok := parseBirthdate(row[idx])
		if !ok {
			continue
		}
		counts[ts.Format("2006-01")]++
	}
	out := make([]Bucket, 0, len(counts))
	for label, n := range counts {
		out = append(out, Bucket{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
