// Package filter applies a selection of cycle, location, status, and gender
// to the three datasets. Filters are relational: narrowing students also
// narrows enrollments and evaluations through shared identity columns, since
// the datasets carry no formal foreign keys.
package filter

import (
	"regexp"
	"strings"

	"github.com/evinicim/metalab-insights/internal/category"
	"github.com/evinicim/metalab-insights/internal/pivot"
	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
	"github.com/evinicim/metalab-insights/internal/textnorm"
)

// All is the sentinel meaning "no restriction" for a filter dimension.
const All = "Todos"

// NormalizedStatusColumn is consulted before the raw status column when
// filtering by status.
const NormalizedStatusColumn = category.NormalizedStatusColumn

// Selection is one value per filter dimension. Empty string is treated the
// same as All.
type Selection struct {
	Cycle    string
	Location string
	Status   string
	Gender   string
}

// NewSelection returns a selection with every dimension unrestricted.
func NewSelection() Selection {
	return Selection{Cycle: All, Location: All, Status: All, Gender: All}
}

func active(v string) bool { return v != "" && v != All }

// IsAll reports whether no dimension restricts anything.
func (s Selection) IsAll() bool {
	return !active(s.Cycle) && !active(s.Location) && !active(s.Status) && !active(s.Gender)
}

// DefaultRegions are the administrative regions recognized inside composite
// location labels. Accented and plain spellings are both listed because the
// sheets mix them.
var DefaultRegions = []string{
	"PLANALTINA", "GAMA", "CEILANDIA", "CEILÂNDIA", "TAGUATINGA", "SAMAMBAIA",
	"BRAZLANDIA", "BRAZLÂNDIA", "SOBRADINHO", "GUARA", "GUARÁ", "CRUZEIRO",
	"AGUAS CLARAS", "ÁGUAS CLARAS", "RIACHO FUNDO", "SANTA MARIA",
	"RECANTO DAS EMAS", "CANDANGOLANDIA", "CANDANGOLÂNDIA",
}

// DefaultIdentityKeywords mark columns usable to relate one dataset's rows to
// another's.
var DefaultIdentityKeywords = []string{"email", "e-mail", "nome", "cpf", "telefone", "celular", "whatsapp"}

var locationColumnKeywords = []string{"local", "regiao", "cidade", "endereco", "bairro"}

var evaluationIDKeywords = []string{"usuario", "opiniao", "pesquisa", "email", "e-mail", "nome"}

// Survey names write the cycle as "2 CICLO", "2º CICLO", or "2o ciclo"; the
// ordinal marker between the digit and the word is optional.
var cycleInSurveyRe = regexp.MustCompile(`(\d+)\s*[ºª°OA]?\s*CICLO`)

// Engine applies selections. Regions and IdentityKeywords default when nil.
type Engine struct {
	Rules            roles.Ruleset
	Regions          []string
	IdentityKeywords []string
}

// New returns an engine with the default vocab.
func New(rules roles.Ruleset) *Engine {
	return &Engine{Rules: rules, Regions: DefaultRegions, IdentityKeywords: DefaultIdentityKeywords}
}

// Apply filters students and enrollments by the selection, in the order
// cycle, location, status, gender. The inputs are never mutated.
func (e *Engine) Apply(students, enrollments *table.Table, sel Selection) (*table.Table, *table.Table) {
	if students == nil || enrollments == nil {
		return students, enrollments
	}
	students, enrollments = e.applyCycle(students, enrollments, sel.Cycle)
	students, enrollments = e.applyLocation(students, enrollments, sel.Location)
	students, enrollments = e.applyStatus(students, enrollments, sel.Status)
	students, enrollments = e.applyGender(students, enrollments, sel.Gender)
	return students, enrollments
}

func (e *Engine) applyCycle(students, enrollments *table.Table, cycle string) (*table.Table, *table.Table) {
	col, ok := e.Rules.Resolve(students.Columns, roles.Cycle)
	if !active(cycle) || !ok {
		return students, enrollments
	}
	idx := students.ColumnIndex(col)
	students = students.Filter(func(row []string) bool {
		return strings.TrimSpace(row[idx]) == cycle
	})

	if encol, ok := e.Rules.Resolve(enrollments.Columns, roles.Cycle); ok {
		eidx := enrollments.ColumnIndex(encol)
		enrollments = enrollments.Filter(func(row []string) bool {
			return strings.TrimSpace(row[eidx]) == cycle
		})
	} else {
		for i, c := range enrollments.Columns {
			if strings.Contains(textnorm.Normalize(c), "ciclo") {
				i := i
				enrollments = enrollments.Filter(func(row []string) bool {
					return strings.TrimSpace(row[i]) == cycle
				})
				break
			}
		}
	}
	return students, e.propagate(students, enrollments)
}

func (e *Engine) applyLocation(students, enrollments *table.Table, location string) (*table.Table, *table.Table) {
	col, ok := e.Rules.Resolve(students.Columns, roles.Local)
	if !active(location) || !ok {
		return students, enrollments
	}
	idx := students.ColumnIndex(col)
	students = students.Filter(func(row []string) bool {
		return row[idx] == location
	})

	keywords := e.regionKeywords(location)

	if encol, ok := e.Rules.Resolve(enrollments.Columns, roles.Local); ok {
		eidx := enrollments.ColumnIndex(encol)
		enrollments = enrollments.Filter(func(row []string) bool {
			return containsAny(textnorm.Key(row[eidx]), keywords)
		})
	}

	// Any address-like column can carry the region name.
	var locCols []int
	for i, c := range enrollments.Columns {
		if containsAnyNormalized(c, locationColumnKeywords) {
			locCols = append(locCols, i)
		}
	}
	if len(locCols) > 0 {
		matched := enrollments.Filter(func(row []string) bool {
			for _, i := range locCols {
				if containsAny(textnorm.Key(row[i]), keywords) {
					return true
				}
			}
			return false
		})
		// Only trust the fuzzy match when it finds anything at all.
		if matched.NumRows() > 0 {
			enrollments = matched
		}
	}
	return students, enrollments
}

// regionKeywords extracts the known region names embedded in a composite
// location label, falling back to the label itself.
func (e *Engine) regionKeywords(location string) []string {
	upper := textnorm.Key(location)
	var out []string
	for _, r := range e.Regions {
		if strings.Contains(upper, r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		out = []string{upper}
	}
	return out
}

func (e *Engine) applyStatus(students, enrollments *table.Table, status string) (*table.Table, *table.Table) {
	if !active(status) {
		return students, enrollments
	}
	if students.HasColumn(NormalizedStatusColumn) {
		idx := students.ColumnIndex(NormalizedStatusColumn)
		accept := category.StatusAcceptSet(status)
		students = students.Filter(func(row []string) bool {
			return accept[row[idx]]
		})
	} else if col, ok := e.Rules.Resolve(students.Columns, roles.Status); ok {
		idx := students.ColumnIndex(col)
		students = students.Filter(func(row []string) bool {
			return rawStatusMatches(row[idx], status)
		})
	}
	return students, e.propagate(students, enrollments)
}

// rawStatusMatches compares an unnormalized status cell against the selected
// status using the same synonym families the normalizer knows.
func rawStatusMatches(raw, status string) bool {
	v := textnorm.Normalize(raw)
	switch textnorm.Key(status) {
	case category.StatusConcluido, "CONCLUIDO":
		return strings.Contains(v, "concluido")
	case category.StatusCursando:
		return strings.Contains(v, "cursando") || strings.Contains(v, "em curso") || strings.Contains(v, "em andamento")
	case category.StatusUnion, "CONCLUIDO + CURSANDO":
		return strings.Contains(v, "concluido") || strings.Contains(v, "cursando") || strings.Contains(v, "em curso")
	case category.StatusDesistente:
		return strings.Contains(v, "desistente")
	default:
		return textnorm.Key(raw) == textnorm.Key(status)
	}
}

func (e *Engine) applyGender(students, enrollments *table.Table, gender string) (*table.Table, *table.Table) {
	if !active(gender) {
		return students, enrollments
	}
	want := textnorm.Key(gender)
	if col, ok := e.Rules.Resolve(enrollments.Columns, roles.Gender); ok {
		idx := enrollments.ColumnIndex(col)
		enrollments = enrollments.Filter(func(row []string) bool {
			return textnorm.Key(row[idx]) == want
		})
	}
	if col, ok := e.Rules.Resolve(students.Columns, roles.Gender); ok {
		idx := students.ColumnIndex(col)
		students = students.Filter(func(row []string) bool {
			return textnorm.Key(row[idx]) == want
		})
	}
	return students, enrollments
}

// propagate narrows enrollments to rows whose identity values appear in the
// filtered students. Column pairs are related by equal names or by a shared
// identity keyword; when no pair exists the step is skipped rather than
// wiping the table.
func (e *Engine) propagate(students, enrollments *table.Table) *table.Table {
	type pair struct{ sIdx, eIdx int }
	var pairs []pair
	for si, sc := range students.Columns {
		scn := textnorm.Normalize(sc)
		for ei, ec := range enrollments.Columns {
			ecn := textnorm.Normalize(ec)
			if scn == ecn || e.shareIdentityKeyword(scn, ecn) {
				pairs = append(pairs, pair{si, ei})
				break
			}
		}
	}
	if len(pairs) == 0 {
		return enrollments
	}
	values := map[string]bool{}
	for _, p := range pairs {
		for _, row := range students.Rows {
			if v := textnorm.Key(row[p.sIdx]); v != "" {
				values[v] = true
			}
		}
	}
	if len(values) == 0 {
		return enrollments
	}
	return enrollments.Filter(func(row []string) bool {
		for _, p := range pairs {
			if values[textnorm.Key(row[p.eIdx])] {
				return true
			}
		}
		return false
	})
}

func (e *Engine) shareIdentityKeyword(a, b string) bool {
	for _, kw := range e.IdentityKeywords {
		if strings.Contains(a, kw) && strings.Contains(b, kw) {
			return true
		}
	}
	return false
}

// ApplyEvaluations filters the wide evaluation table to match already
// filtered students and enrollments. The cycle is matched against the cycle
// column, the survey name, and any other cycle-bearing column; identity
// propagation then narrows by respondent. Every step degrades gracefully, a
// cycle-only selection never returns an empty table when any evaluation
// carries that cycle.
func (e *Engine) ApplyEvaluations(evaluations, students, enrollments, origStudents, origEnrollments *table.Table, cycle string) *table.Table {
	if evaluations == nil || evaluations.NumRows() == 0 {
		return evaluations
	}
	filtered := evaluations

	if active(cycle) {
		want := normalizeCycleValue(cycle)
		matched := filterByCycle(filtered, want)
		if matched.NumRows() > 0 {
			filtered = matched
		} else if idx := filtered.ColumnIndex(pivot.SurveyColumn); idx >= 0 {
			detailed := filtered.Filter(func(row []string) bool {
				return CycleFromSurveyName(row[idx]) == want
			})
			if detailed.NumRows() > 0 {
				filtered = detailed
			}
		}
	}

	cycleOnly := students.NumRows() == origStudents.NumRows() &&
		enrollments.NumRows() == origEnrollments.NumRows()
	if cycleOnly {
		return filtered
	}

	values := map[string]bool{}
	collectIdentityValues(values, students, e.IdentityKeywords)
	collectIdentityValues(values, enrollments, e.IdentityKeywords)

	idIdx := -1
	for i, c := range filtered.Columns {
		if containsAnyNormalized(c, evaluationIDKeywords) {
			idIdx = i
			break
		}
	}
	if idIdx >= 0 && len(values) > 0 {
		filtered = filtered.Filter(func(row []string) bool {
			return values[textnorm.Key(row[idIdx])]
		})
	}

	// Identity propagation can wipe everything when respondents used a
	// different email on the survey. Fall back to the cycle match alone.
	if filtered.NumRows() == 0 && active(cycle) {
		want := normalizeCycleValue(cycle)
		if idx := evaluations.ColumnIndex(pivot.SurveyColumn); idx >= 0 {
			bySurvey := evaluations.Filter(func(row []string) bool {
				return CycleFromSurveyName(row[idx]) == want
			})
			if bySurvey.NumRows() > 0 {
				return bySurvey
			}
		}
		if idx := evaluations.ColumnIndex(pivot.CycleColumn); idx >= 0 {
			byCol := evaluations.Filter(func(row []string) bool {
				return normalizeCycleValue(row[idx]) == want
			})
			if byCol.NumRows() > 0 {
				return byCol
			}
		}
	}
	return filtered
}

// filterByCycle keeps rows matching the wanted cycle in the cycle column,
// the survey name, or any other column whose name mentions the cycle.
func filterByCycle(t *table.Table, want string) *table.Table {
	cIdx := t.ColumnIndex(pivot.CycleColumn)
	sIdx := t.ColumnIndex(pivot.SurveyColumn)
	var extra []int
	for i, c := range t.Columns {
		if i != cIdx && i != sIdx && strings.Contains(textnorm.Normalize(c), "ciclo") {
			extra = append(extra, i)
		}
	}
	return t.Filter(func(row []string) bool {
		if cIdx >= 0 && normalizeCycleValue(row[cIdx]) == want {
			return true
		}
		if sIdx >= 0 && CycleFromSurveyName(row[sIdx]) == want {
			return true
		}
		for _, i := range extra {
			if normalizeCycleValue(row[i]) == want {
				return true
			}
		}
		return false
	})
}

// CycleFromSurveyName extracts the cycle number embedded in a survey name,
// like "Avaliação MCOM 2 Ciclo". Evaluation surveys without an explicit
// number belong to the first cycle. Returns "" when no cycle can be read.
func CycleFromSurveyName(name string) string {
	upper := textnorm.Key(name)
	if m := cycleInSurveyRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	n := textnorm.Normalize(name)
	if strings.Contains(n, "avaliacao") && (strings.Contains(n, "mcom") || strings.Contains(n, "mkt digital")) {
		return "1"
	}
	return ""
}

func normalizeCycleValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, ".0")
	return strings.TrimSpace(v)
}

func collectIdentityValues(into map[string]bool, t *table.Table, keywords []string) {
	for i, c := range t.Columns {
		if !containsAnyNormalized(c, keywords) {
			continue
		}
		for _, row := range t.Rows {
			if v := textnorm.Key(row[i]); v != "" {
				into[v] = true
			}
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAnyNormalized(column string, keywords []string) bool {
	n := textnorm.Normalize(column)
	for _, kw := range keywords {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}
