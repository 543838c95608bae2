// Package roles resolves semantic column roles against a table's actual
// column names. Source spreadsheets evolve independently, so nothing about a
// physical column name is guaranteed; each role carries an ordered list of
// keyword groups, most specific first, and the first column satisfying a
// group wins. Resolution is a pure function over a list of column names.
package roles

import (
	"strings"

	"github.com/evinicim/metalab-insights/internal/textnorm"
)

// Role is a semantic purpose a column may serve. A role resolves to zero or
// one physical column per table, independently per table.
type Role string

const (
	Status        Role = "status"
	Income        Role = "income"
	Region        Role = "region"
	Birthdate     Role = "birthdate"
	Age           Role = "age"
	Gender        Role = "gender"
	Cycle         Role = "cycle"
	Local         Role = "local"
	Race          Role = "race"
	Channel       Role = "channel"
	Timestamp     Role = "timestamp"
	Question      Role = "question"
	Respondent    Role = "respondent"
	AnswerText    Role = "answer_text"
	AnswerDisplay Role = "answer_display"
	Survey        Role = "survey"
	CourseEval    Role = "course_eval"
	TeacherEval   Role = "teacher_eval"
	Course        Role = "course"
)

// Group is one acceptance predicate over a normalized column name: every
// entry of All must appear as a substring, and every alternative set in AnyOf
// must contribute at least one match. A group with two AnyOf sets expresses
// composite acceptance ("an evaluation word AND a course word").
type Group struct {
	All   []string   `yaml:"all,omitempty" mapstructure:"all"`
	AnyOf [][]string `yaml:"any_of,omitempty" mapstructure:"any_of"`
}

// Matches reports whether the given normalized column name satisfies the
// group. An empty group matches nothing.
func (g Group) Matches(normalized string) bool {
	if len(g.All) == 0 && len(g.AnyOf) == 0 {
		return false
	}
	for _, kw := range g.All {
		if !containsNorm(normalized, kw) {
			return false
		}
	}
	for _, alts := range g.AnyOf {
		ok := false
		for _, kw := range alts {
			if containsNorm(normalized, kw) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func containsNorm(normalized, keyword string) bool {
	kw := textnorm.Normalize(keyword)
	if kw == "" {
		return false
	}
	return strings.Contains(normalized, kw)
}

// Ruleset maps each role to its ordered keyword groups.
type Ruleset map[Role][]Group

// Resolve returns the first column whose normalized name satisfies one of the
// role's groups, trying groups in priority order. Absence is a normal state:
// callers must treat ok == false as "feature unavailable", not as an error.
func (rs Ruleset) Resolve(columns []string, role Role) (string, bool) {
	groups := rs[role]
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = textnorm.Normalize(c)
	}
	for _, g := range groups {
		for i, n := range normalized {
			if g.Matches(n) {
				return columns[i], true
			}
		}
	}
	return "", false
}

// ResolveAll resolves every known role against the columns, omitting absent
// roles from the result.
func (rs Ruleset) ResolveAll(columns []string) map[Role]string {
	out := map[Role]string{}
	for role := range rs {
		if col, ok := rs.Resolve(columns, role); ok {
			out[role] = col
		}
	}
	return out
}

// Merge overlays non-empty role rules from other onto a copy of rs, so that a
// config file can replace the vocabulary for individual roles without
// restating the rest.
func (rs Ruleset) Merge(other Ruleset) Ruleset {
	out := Ruleset{}
	for k, v := range rs {
		out[k] = v
	}
	for k, v := range other {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

// Default returns the built-in vocabulary, tuned to the source organization's
// Brazilian Portuguese spreadsheets. Keyword matching runs on normalized
// text, so accents in keywords are optional.
func Default() Ruleset {
	return Ruleset{
		Status: {{All: []string{"status"}}},
		Income: {
			{All: []string{"renda"}},
			{All: []string{"salario"}},
			{All: []string{"familiar"}},
		},
		Region: {
			{All: []string{"regiao"}},
			{All: []string{"cidade"}},
			{All: []string{"endereco"}},
			{All: []string{"bairro"}},
		},
		Birthdate: {
			{All: []string{"data de nascimento"}},
			{All: []string{"nascimento"}},
			{All: []string{"nasc"}},
			{All: []string{"birth"}},
		},
		Age: {
			{All: []string{"idade"}},
			{All: []string{"age"}},
		},
		Gender: {
			{All: []string{"sexo"}},
			{All: []string{"genero"}},
		},
		Cycle: {{All: []string{"ciclo"}}},
		Local: {{All: []string{"local"}}},
		Race: {
			{All: []string{"ibge"}},
			{All: []string{"autodeclara"}},
			{All: []string{"raca"}},
			{All: []string{"cor"}},
		},
		Channel: {
			{All: []string{"sabendo", "curso"}},
			{AnyOf: [][]string{{"canal", "canais"}, {"curso", "divulgacao"}}},
		},
		Timestamp: {
			{All: []string{"carimbo"}},
			{All: []string{"data/hora"}},
			{All: []string{"timestamp"}},
		},
		Question: {
			{All: []string{"pergunta"}},
			{All: []string{"question"}},
		},
		Respondent: {
			{AnyOf: [][]string{{"usuario", "opiniao", "pesquisa"}}},
		},
		AnswerText: {
			{All: []string{"resposta de texto livre"}},
			{All: []string{"resposta"}},
		},
		AnswerDisplay: {{All: []string{"nome exibido"}}},
		Survey:        {{All: []string{"pesquisa"}}},
		CourseEval: {
			{AnyOf: [][]string{
				{"considerei", "considerou", "avaliacao", "avaliar", "avaliou"},
				{"curso", "meta"},
			}},
		},
		TeacherEval: {
			{AnyOf: [][]string{
				{"avalie", "avaliar", "avaliou", "avaliacao"},
				{"professor", "educador", "instrutor", "docente"},
			}},
		},
		Course: {{All: []string{"curso"}}},
	}
}
