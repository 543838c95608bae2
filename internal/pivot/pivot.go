// Package pivot reshapes long-format evaluation tables (one row per answer)
// into wide format (one row per respondent submission). The reshape is
// best-effort: an ordered list of strategies is tried in sequence and the
// first success wins; if every strategy fails the input is returned
// unchanged, never an error.
package pivot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
	"github.com/evinicim/metalab-insights/internal/textnorm"
)

// CycleColumn and SurveyColumn are the side columns reattached to the wide
// table after the reshape.
const (
	CycleColumn  = "CICLO"
	SurveyColumn = "Pesquisa"
)

// freeTextThreshold is the minimum populated fraction for a free-text answer
// column to be preferred over the displayed-name column.
const freeTextThreshold = 0.1

var discardedCycleValues = map[string]bool{
	"IGNORADOS": true, "NAN": true, "NONE": true, "NULL": true, "": true,
}

// Engine pivots evaluation tables using a role ruleset to locate the
// question, respondent, and answer columns.
type Engine struct {
	Rules roles.Ruleset
}

// New returns an engine over the given ruleset.
func New(rules roles.Ruleset) *Engine {
	return &Engine{Rules: rules}
}

// Pivot converts a long-format table to wide format. Tables without a
// question column are already wide and are returned as-is.
func (e *Engine) Pivot(t *table.Table) *table.Table {
	if t == nil || t.NumRows() == 0 {
		return t
	}
	questionCol, ok := e.Rules.Resolve(t.Columns, roles.Question)
	if !ok {
		return t
	}
	valueCol, ok := e.resolveValueColumn(t)
	if !ok {
		return t
	}

	groups := assignGroups(t, questionCol, e.respondentColumn(t))
	cycles, surveys := extractSideMaps(t, groups, questionCol, valueCol)

	for _, s := range strategies {
		wide, err := s(t, groups, questionCol, valueCol)
		if err != nil {
			continue
		}
		return attachSideColumns(wide, groups, cycles, surveys)
	}
	return t
}

// respondentColumn returns the respondent/survey-instance id column, or "".
func (e *Engine) respondentColumn(t *table.Table) string {
	col, _ := e.Rules.Resolve(t.Columns, roles.Respondent)
	return col
}

// resolveValueColumn picks the answer value column: a free-text answer column
// populated in more than 10% of rows wins, else the displayed-name column.
func (e *Engine) resolveValueColumn(t *table.Table) (string, bool) {
	if col, ok := e.Rules.Resolve(t.Columns, roles.AnswerText); ok {
		populated := 0
		for _, v := range t.Column(col) {
			if strings.TrimSpace(v) != "" {
				populated++
			}
		}
		if float64(populated) > float64(t.NumRows())*freeTextThreshold {
			return col, true
		}
	}
	if col, ok := e.Rules.Resolve(t.Columns, roles.AnswerDisplay); ok {
		return col, true
	}
	return "", false
}

// groupAssignment carries the per-row response group key plus the group keys
// in first-appearance order.
type groupAssignment struct {
	byRow []string
	order []string
}

// assignGroups partitions the long table into response groups. The flag
// "this row repeats the first row's question" increments a running counter,
// kept per respondent id when an id column exists; a group therefore spans
// the rows between two recurrences of the first question.
func assignGroups(t *table.Table, questionCol, idCol string) groupAssignment {
	qIdx := t.ColumnIndex(questionCol)
	idIdx := -1
	if idCol != "" {
		idIdx = t.ColumnIndex(idCol)
	}
	first := t.Rows[0][qIdx]

	counters := map[string]int{}
	seen := map[string]bool{}
	ga := groupAssignment{byRow: make([]string, len(t.Rows))}
	for i, row := range t.Rows {
		id := ""
		if idIdx >= 0 {
			id = textnorm.Key(row[idIdx])
		}
		if row[qIdx] == first {
			counters[id]++
		}
		key := fmt.Sprintf("%s#%d", id, counters[id])
		ga.byRow[i] = key
		if !seen[key] {
			seen[key] = true
			ga.order = append(ga.order, key)
		}
	}
	return ga
}

// extractSideMaps pulls cycle answers and survey names out per group before
// the reshape, because the reshape keys on question text and would otherwise
// fragment them. Gaps are forward- then backward-filled in group order on the
// assumption that a respondent's cycle and survey stay constant across a
// submission.
func extractSideMaps(t *table.Table, groups groupAssignment, questionCol, valueCol string) (cycles, surveys map[string]string) {
	qIdx := t.ColumnIndex(questionCol)
	vIdx := t.ColumnIndex(valueCol)
	sIdx := -1
	for i, c := range t.Columns {
		if textnorm.Normalize(c) == "pesquisa" {
			sIdx = i
			break
		}
	}

	cycles = map[string]string{}
	surveys = map[string]string{}
	for i, row := range t.Rows {
		key := groups.byRow[i]
		if strings.Contains(textnorm.Key(row[qIdx]), "CICLO") {
			if v, ok := cleanCycleValue(row[vIdx]); ok {
				if _, exists := cycles[key]; !exists {
					cycles[key] = v
				}
			}
		}
		if sIdx >= 0 && strings.TrimSpace(row[sIdx]) != "" {
			if _, exists := surveys[key]; !exists {
				surveys[key] = row[sIdx]
			}
		}
	}
	fillGaps(cycles, groups.order)
	fillGaps(surveys, groups.order)
	return cycles, surveys
}

// cleanCycleValue trims a raw cycle answer, strips a trailing ".0", and
// rejects placeholder values.
func cleanCycleValue(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	v = strings.TrimSuffix(v, ".0")
	v = strings.TrimSpace(v)
	if discardedCycleValues[textnorm.Key(v)] {
		return "", false
	}
	return v, true
}

// fillGaps forward-fills then backward-fills missing group entries in group
// order.
func fillGaps(m map[string]string, order []string) {
	last := ""
	for _, key := range order {
		if v, ok := m[key]; ok {
			last = v
		} else if last != "" {
			m[key] = last
		}
	}
	next := ""
	for i := len(order) - 1; i >= 0; i-- {
		if v, ok := m[order[i]]; ok {
			next = v
		} else if next != "" {
			m[order[i]] = next
		}
	}
}

// attachSideColumns appends the cycle and survey side maps as ordinary
// columns when they carry any value.
func attachSideColumns(wide *table.Table, groups groupAssignment, cycles, surveys map[string]string) *table.Table {
	out := wide
	if len(cycles) > 0 && !out.HasColumn(CycleColumn) {
		vals := make([]string, len(groups.order))
		for i, key := range groups.order {
			vals[i] = cycles[key]
		}
		out = out.WithColumn(CycleColumn, vals)
	}
	if len(surveys) > 0 && !out.HasColumn(SurveyColumn) {
		vals := make([]string, len(groups.order))
		for i, key := range groups.order {
			vals[i] = surveys[key]
		}
		out = out.WithColumn(SurveyColumn, vals)
	}
	return out
}

// A strategy reshapes the long table into one row per group. Strategies are
// tried in order; returning an error hands off to the next one.
type strategy func(t *table.Table, groups groupAssignment, questionCol, valueCol string) (*table.Table, error)

var strategies = []strategy{strictReshape, firstValueReshape, groupFirstAggregate}

// distinctQuestions returns the question values in first-appearance order,
// skipping blanks.
func distinctQuestions(t *table.Table, questionCol string) []string {
	qIdx := t.ColumnIndex(questionCol)
	seen := map[string]bool{}
	var out []string
	for _, row := range t.Rows {
		q := strings.TrimSpace(row[qIdx])
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

func reshape(t *table.Table, groups groupAssignment, questionCol, valueCol string, failOnDuplicate bool) (*table.Table, error) {
	qIdx := t.ColumnIndex(questionCol)
	vIdx := t.ColumnIndex(valueCol)
	questions := distinctQuestions(t, questionCol)
	if len(questions) == 0 {
		return nil, errors.New("no question values")
	}
	qPos := make(map[string]int, len(questions))
	for i, q := range questions {
		qPos[q] = i
	}
	gPos := make(map[string]int, len(groups.order))
	for i, key := range groups.order {
		gPos[key] = i
	}

	out := &table.Table{ID: t.ID, Name: t.Name, Columns: questions}
	out.Rows = make([][]string, len(groups.order))
	for i := range out.Rows {
		out.Rows[i] = make([]string, len(questions))
	}
	filled := map[[2]int]bool{}
	for i, row := range t.Rows {
		q := strings.TrimSpace(row[qIdx])
		v := strings.TrimSpace(row[vIdx])
		if q == "" || v == "" {
			continue
		}
		cell := [2]int{gPos[groups.byRow[i]], qPos[q]}
		if filled[cell] {
			if failOnDuplicate {
				return nil, fmt.Errorf("duplicate answer for group %s question %q", groups.byRow[i], q)
			}
			continue // keep first occurrence
		}
		filled[cell] = true
		out.Rows[cell[0]][cell[1]] = v
	}
	return out, nil
}

func strictReshape(t *table.Table, groups groupAssignment, questionCol, valueCol string) (*table.Table, error) {
	return reshape(t, groups, questionCol, valueCol, true)
}

func firstValueReshape(t *table.Table, groups groupAssignment, questionCol, valueCol string) (*table.Table, error) {
	return reshape(t, groups, questionCol, valueCol, false)
}

// groupFirstAggregate is the last-resort reshape: it walks group by group and
// takes the first non-missing value per question, tolerating any input shape.
func groupFirstAggregate(t *table.Table, groups groupAssignment, questionCol, valueCol string) (*table.Table, error) {
	qIdx := t.ColumnIndex(questionCol)
	vIdx := t.ColumnIndex(valueCol)
	if qIdx < 0 || vIdx < 0 {
		return nil, errors.New("columns unavailable")
	}
	questions := distinctQuestions(t, questionCol)
	byGroup := map[string]map[string]string{}
	for i, row := range t.Rows {
		key := groups.byRow[i]
		if byGroup[key] == nil {
			byGroup[key] = map[string]string{}
		}
		q := strings.TrimSpace(row[qIdx])
		if q == "" {
			continue
		}
		if _, ok := byGroup[key][q]; !ok && strings.TrimSpace(row[vIdx]) != "" {
			byGroup[key][q] = strings.TrimSpace(row[vIdx])
		}
	}
	out := &table.Table{ID: t.ID, Name: t.Name, Columns: questions}
	for _, key := range groups.order {
		row := make([]string, len(questions))
		for j, q := range questions {
			row[j] = byGroup[key][q]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
