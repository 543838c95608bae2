// Package category maps raw free-text categorical values onto canonical
// buckets. Rules are ordered most-specific-first and the first match wins;
// anything unmatched passes through title-cased so that no information is
// discarded, at the cost of an open-ended label set.
package category

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/evinicim/metalab-insights/internal/textnorm"
)

// Value is a normalization result. Known marks curated canonical buckets;
// pass-through labels carry Known == false so aggregation can separate the
// long tail without string comparison.
type Value struct {
	Label string
	Known bool
}

// Canonical status labels.
const (
	StatusCursando      = "CURSANDO"
	StatusConcluido     = "CONCLUÍDO"
	StatusDesistente    = "DESISTENTE"
	StatusNaoCompareceu = "NÃO COMPARECEU"
	StatusSem           = "SEM STATUS"
	StatusOutros        = "OUTROS"
)

// StatusUnion is the selectable union of active and finished students; it
// expands to {CURSANDO, CONCLUÍDO} when filtering.
const StatusUnion = "CURSANDO + CONCLUÍDO"

// NormalizedStatusColumn names the column preprocessing adds to the student
// table with the NormalizeStatus result of each row.
const NormalizedStatusColumn = "STATUS_NORMALIZADO"

var nullish = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "n/a": true, "na": true,
}

// NormalizeStatus maps a raw status value onto a canonical bucket. Null-ish
// input yields SEM STATUS. Compound values ("cursando - atestado") classify
// by the contained canonical pattern; the canonical patterns are checked
// before the pass-through fallback so a compound never leaks as Other.
func NormalizeStatus(raw string) Value {
	n := textnorm.Normalize(raw)
	if nullish[n] {
		return Value{Label: StatusSem, Known: true}
	}
	switch {
	case strings.Contains(n, "conclu"):
		return Value{Label: StatusConcluido, Known: true}
	case strings.Contains(n, "cursando"),
		strings.Contains(n, "em curso"),
		strings.Contains(n, "andamento"):
		return Value{Label: StatusCursando, Known: true}
	case strings.Contains(n, "desist"):
		return Value{Label: StatusDesistente, Known: true}
	case strings.Contains(n, "nao compareceu"),
		strings.Contains(n, "faltou"):
		return Value{Label: StatusNaoCompareceu, Known: true}
	}
	return Value{Label: textnorm.TitleCase(raw)}
}

// StatusAcceptSet expands a status filter selection into the set of canonical
// labels it accepts.
func StatusAcceptSet(selected string) map[string]bool {
	switch textnorm.Normalize(selected) {
	case "cursando + concluido", "concluido + cursando":
		return map[string]bool{StatusCursando: true, StatusConcluido: true}
	}
	return map[string]bool{NormalizeStatus(selected).Label: true}
}

// Income bracket labels, ordered low to high. The order is part of the output
// contract: distributions are reported in this order.
var IncomeBrackets = []string{
	"Não possui renda mensal",
	"Até meio salário mínimo",
	"Até um salário mínimo",
	"De 1 a 2 salários mínimos",
	"De 2 a 3 salários mínimos",
	"De 3 a 4 salários mínimos",
	"Acima de 5 salários mínimos",
}

var incomeFillers = []string{"recebe", "de"}

type incomeRule struct {
	patterns     []string
	needsSalario bool
	exclude      []string
	label        string
}

// Ordered most-specific-first; the "sem renda" rules must run before any
// numeric rule because "não possui renda" contains no salary keyword.
var incomeRules = []incomeRule{
	{patterns: []string{"nao possui renda mensal", "nao possui renda", "sem renda mensal", "sem renda familiar", "sem renda", "nao tem renda"}, label: "Não possui renda mensal"},
	{patterns: []string{"meio salario", "0.5 salario", "ate meio"}, needsSalario: true, label: "Até meio salário mínimo"},
	{patterns: []string{"ate um", "ate 1", "um salario", "1 salario"}, needsSalario: true, exclude: []string{"meio"}, label: "Até um salário mínimo"},
	{patterns: []string{"1 a 2", "1-2", "1 ate 2", "um a dois"}, needsSalario: true, label: "De 1 a 2 salários mínimos"},
	{patterns: []string{"2 a 3", "2-3", "2 ate 3", "dois a tres"}, needsSalario: true, label: "De 2 a 3 salários mínimos"},
	{patterns: []string{"3 a 4", "3-4", "3 ate 4", "tres a quatro"}, needsSalario: true, label: "De 3 a 4 salários mínimos"},
	{patterns: []string{"acima de 5", "mais de 5", "acima 5", "mais 5", "5 ou mais", "5+"}, needsSalario: true, label: "Acima de 5 salários mínimos"},
}

var digitRe = regexp.MustCompile(`\d+`)

var rangeLabels = map[[2]int]string{
	{1, 2}: "De 1 a 2 salários mínimos",
	{2, 3}: "De 2 a 3 salários mínimos",
	{3, 4}: "De 3 a 4 salários mínimos",
}

// NormalizeIncome maps a raw income bracket value onto a canonical label.
// Null-ish input returns ok == false. After the ordered pattern rules, a
// digit-pair fallback classifies "N a M"-shaped values against the bracket
// table; anything still unmatched passes through title-cased as Other.
func NormalizeIncome(raw string) (Value, bool) {
	n := textnorm.Normalize(raw)
	if nullish[n] {
		return Value{}, false
	}
	stripped := stripFillers(n)

	for _, r := range incomeRules {
		if r.needsSalario && !strings.Contains(stripped, "salario") {
			continue
		}
		if matchesAny(stripped, r.exclude) {
			continue
		}
		if matchesAny(stripped, r.patterns) {
			return Value{Label: r.label, Known: true}, true
		}
	}

	if strings.Contains(stripped, "salario") {
		nums := digitRe.FindAllString(stripped, -1)
		switch {
		case strings.Contains(stripped, "meio") || strings.Contains(stripped, "0.5"):
			return Value{Label: "Até meio salário mínimo", Known: true}, true
		case len(nums) >= 2:
			a, _ := strconv.Atoi(nums[0])
			b, _ := strconv.Atoi(nums[1])
			if label, ok := rangeLabels[[2]int{a, b}]; ok {
				return Value{Label: label, Known: true}, true
			}
		case len(nums) == 1:
			if v, _ := strconv.Atoi(nums[0]); v >= 5 {
				return Value{Label: "Acima de 5 salários mínimos", Known: true}, true
			} else if v == 1 {
				return Value{Label: "Até um salário mínimo", Known: true}, true
			}
		case strings.Contains(stripped, "um"):
			return Value{Label: "Até um salário mínimo", Known: true}, true
		}
	}

	return Value{Label: textnorm.TitleCase(raw)}, true
}

func stripFillers(n string) string {
	fields := strings.Fields(n)
	out := fields[:0]
	for _, f := range fields {
		skip := false
		for _, filler := range incomeFillers {
			if f == filler {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
