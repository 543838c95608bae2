package metrics

import (
	"testing"
	"time"

	"github.com/evinicim/metalab-insights/internal/category"
	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
)

func TestStatusTallySumsToBaseTotal(t *testing.T) {
	tab := table.New("alunos", []string{category.NormalizedStatusColumn, "CURSO"})
	for _, r := range [][]string{
		{"CURSANDO", "MCOM"},
		{"CURSANDO", "MCOM"},
		{"CURSANDO", "MKT Digital"},
		{"CONCLUÍDO", "MCOM"},
		{"DESISTENTE", ""},
	} {
		tab.AppendRow(r)
	}

	rows := New(roles.Default()).StatusTally(tab, 7)
	if rows[0].Status != "CURSANDO" || rows[0].Count != 3 {
		t.Fatalf("largest group first, got %+v", rows[0])
	}
	if rows[0].TopCourses[0] != "MCOM" {
		t.Fatalf("top course = %v", rows[0].TopCourses)
	}
	last := rows[len(rows)-1]
	if last.Status != Unclassified || last.Count != 2 {
		t.Fatalf("expected residual of 2, got %+v", last)
	}
	sum := 0
	for _, r := range rows {
		sum += r.Count
	}
	if sum != 7 {
		t.Fatalf("tally sums to %d, want the base total 7", sum)
	}
}

func TestStatusTallyNormalizesRawStatus(t *testing.T) {
	tab := table.New("alunos", []string{"STATUS"})
	for _, s := range []string{"concluido", "Concluído", "cursando - atestado", ""} {
		tab.AppendRow([]string{s})
	}

	rows := New(roles.Default()).StatusTally(tab, 4)
	if rows[0].Status != category.StatusConcluido || rows[0].Count != 2 {
		t.Fatalf("raw spellings should collapse, got %+v", rows)
	}
}

func TestAgeBucketsFromBirthdate(t *testing.T) {
	tab := table.New("alunos", []string{"NOME", "DATA DE NASCIMENTO"})
	for _, r := range [][]string{
		{"a", "15/03/2000"}, // 24
		{"b", "20/11/2000"}, // 23, birthday not reached
		{"c", "01/01/1980"}, // 44
		{"d", "31/12/2012"}, // 11
		{"e", "01/01/1890"}, // discarded, over 100
		{"f", "sem data"},
	} {
		tab.AppendRow(r)
	}

	e := New(roles.Default())
	e.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := e.AgeBuckets(tab)

	want := []Bucket{{"Até 18", 1}, {"19-25", 2}, {"41-45", 1}}
	if len(got) != len(want) {
		t.Fatalf("buckets = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAgeBucketBoundaries(t *testing.T) {
	// An 18th birthday today still lands in the first band; a 19th birthday
	// today moves to the next one.
	tab := table.New("alunos", []string{"DATA DE NASCIMENTO"})
	tab.AppendRow([]string{"01/06/2006"}) // turns 18 today
	tab.AppendRow([]string{"01/06/2005"}) // turns 19 today

	e := New(roles.Default())
	e.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := e.AgeBuckets(tab)

	want := []Bucket{{"Até 18", 1}, {"19-25", 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("buckets = %+v, want %+v", got, want)
	}
}

func TestAgeBucketsPrefersDirectAgeColumn(t *testing.T) {
	tab := table.New("alunos", []string{"IDADE", "DATA DE NASCIMENTO"})
	tab.AppendRow([]string{"30", "01/01/1950"})
	tab.AppendRow([]string{"19 anos", "01/01/1950"})

	got := New(roles.Default()).AgeBuckets(tab)
	want := []Bucket{{"19-25", 1}, {"26-30", 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("buckets = %+v, want %+v", got, want)
	}
}

func TestAgeBucketsIgnoresNonNumericAgeColumn(t *testing.T) {
	// An age column full of text must not block the birthdate fallback.
	tab := table.New("alunos", []string{"FAIXA DE IDADE", "NASCIMENTO"})
	tab.AppendRow([]string{"adulto", "01/01/1990"})

	e := New(roles.Default())
	e.Now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got := e.AgeBuckets(tab)
	if len(got) != 1 || got[0].Label != "31-35" {
		t.Fatalf("buckets = %+v", got)
	}
}

func TestIncomeDistributionOrder(t *testing.T) {
	tab := table.New("alunos", []string{"RENDA FAMILIAR"})
	for _, v := range []string{
		"Acima de 5 salários mínimos",
		"Até um salário mínimo",
		"Até um salário mínimo",
		"Não possui renda mensal",
		"bolsa de estudos",
		"",
	} {
		tab.AppendRow([]string{v})
	}

	got := New(roles.Default()).IncomeDistribution(tab)
	wantLabels := []string{
		"Não possui renda mensal",
		"Até um salário mínimo",
		"Acima de 5 salários mínimos",
		"Bolsa De Estudos",
	}
	if len(got) != len(wantLabels) {
		t.Fatalf("distribution = %+v", got)
	}
	for i, label := range wantLabels {
		if got[i].Label != label {
			t.Fatalf("bucket %d = %q, want %q", i, got[i].Label, label)
		}
	}
	if got[1].Count != 2 {
		t.Fatalf("count for %q = %d", got[1].Label, got[1].Count)
	}
}

func TestCategoryCounts(t *testing.T) {
	tab := table.New("inscricoes", []string{"Sexo:"})
	for _, v := range []string{"Feminino", "Feminino", "Masculino", ""} {
		tab.AppendRow([]string{v})
	}

	got := New(roles.Default()).CategoryCounts(tab, roles.Gender)
	if len(got) != 2 || got[0] != (Bucket{"Feminino", 2}) || got[1] != (Bucket{"Masculino", 1}) {
		t.Fatalf("counts = %+v", got)
	}
}

func TestMonthlyCounts(t *testing.T) {
	tab := table.New("inscricoes", []string{"Carimbo de data/hora"})
	for _, v := range []string{
		"05/01/2024 10:00:00",
		"20/01/2024 11:30:00",
		"03/02/2024 09:15:00",
		"inválido",
	} {
		tab.AppendRow([]string{v})
	}

	got := New(roles.Default()).MonthlyCounts(tab)
	if len(got) != 2 || got[0] != (Bucket{"2024-01", 2}) || got[1] != (Bucket{"2024-02", 1}) {
		t.Fatalf("monthly = %+v", got)
	}
}
