package filter

import (
	"testing"

	"github.com/evinicim/metalab-insights/internal/pivot"
	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
)

func studentsFixture(t *testing.T) *table.Table {
	t.Helper()
	tab := table.New("alunos", []string{"NOME COMPLETO", "E-mail", "CICLO", "LOCAL", NormalizedStatusColumn})
	for _, r := range [][]string{
		{"Ana Souza", "ana@ex.com", "1", "UNIDADE CEILÂNDIA", "CURSANDO"},
		{"Bia Lima", "bia@ex.com", "1", "UNIDADE CEILÂNDIA", "CURSANDO"},
		{"Caio Melo", "caio@ex.com", "2", "UNIDADE GAMA", "CURSANDO"},
		{"Davi Reis", "davi@ex.com", "2", "UNIDADE GAMA", "DESISTENTE"},
		{"Eva Dias", "eva@ex.com", "1", "UNIDADE CEILÂNDIA", "CONCLUÍDO"},
	} {
		tab.AppendRow(r)
	}
	return tab
}

func enrollmentsFixture(t *testing.T) *table.Table {
	t.Helper()
	tab := table.New("inscricoes", []string{"Seu e-mail:", "Sexo:", "Endereço completo"})
	for _, r := range [][]string{
		{"ana@ex.com", "Feminino", "QNN 10 Ceilândia Norte"},
		{"bia@ex.com", "Feminino", "Ceilândia Sul"},
		{"caio@ex.com", "Masculino", "Setor Central Gama"},
		{"davi@ex.com", "Masculino", "Gama Leste"},
		{"eva@ex.com", "Feminino", "P Sul Ceilândia"},
		{"zoe@ex.com", "Feminino", "Taguatinga Norte"},
	} {
		tab.AppendRow(r)
	}
	return tab
}

func TestApplyAllIsIdentity(t *testing.T) {
	e := New(roles.Default())
	students, enrollments := studentsFixture(t), enrollmentsFixture(t)

	gotS, gotE := e.Apply(students, enrollments, NewSelection())
	if gotS.NumRows() != students.NumRows() || gotE.NumRows() != enrollments.NumRows() {
		t.Fatalf("unrestricted selection changed row counts: %d/%d", gotS.NumRows(), gotE.NumRows())
	}
}

func TestApplyStatusPropagatesToEnrollments(t *testing.T) {
	e := New(roles.Default())
	gotS, gotE := e.Apply(studentsFixture(t), enrollmentsFixture(t), Selection{
		Cycle: All, Location: All, Status: "CURSANDO", Gender: All,
	})
	if gotS.NumRows() != 3 {
		t.Fatalf("expected 3 CURSANDO students, got %d", gotS.NumRows())
	}
	// Enrollments shrink to the rows sharing an e-mail with kept students.
	if gotE.NumRows() != 3 {
		t.Fatalf("expected 3 related enrollments, got %d rows: %v", gotE.NumRows(), gotE.Rows)
	}
	for _, row := range gotE.Rows {
		if row[0] == "davi@ex.com" || row[0] == "eva@ex.com" || row[0] == "zoe@ex.com" {
			t.Fatalf("unrelated enrollment survived: %v", row)
		}
	}
}

func TestApplyStatusUnion(t *testing.T) {
	e := New(roles.Default())
	gotS, _ := e.Apply(studentsFixture(t), enrollmentsFixture(t), Selection{
		Cycle: All, Location: All, Status: "CURSANDO + CONCLUÍDO", Gender: All,
	})
	if gotS.NumRows() != 4 {
		t.Fatalf("union should keep CURSANDO and CONCLUÍDO, got %d", gotS.NumRows())
	}
}

func TestApplyCycle(t *testing.T) {
	e := New(roles.Default())
	gotS, gotE := e.Apply(studentsFixture(t), enrollmentsFixture(t), Selection{
		Cycle: "2", Location: All, Status: All, Gender: All,
	})
	if gotS.NumRows() != 2 {
		t.Fatalf("expected 2 cycle-2 students, got %d", gotS.NumRows())
	}
	if gotE.NumRows() != 2 {
		t.Fatalf("expected 2 propagated enrollments, got %d", gotE.NumRows())
	}
}

func TestApplyLocationMatchesRegionInAddress(t *testing.T) {
	e := New(roles.Default())
	gotS, gotE := e.Apply(studentsFixture(t), enrollmentsFixture(t), Selection{
		Cycle: All, Location: "UNIDADE CEILÂNDIA", Status: All, Gender: All,
	})
	if gotS.NumRows() != 3 {
		t.Fatalf("expected 3 students at the unit, got %d", gotS.NumRows())
	}
	if gotE.NumRows() != 3 {
		t.Fatalf("expected 3 Ceilândia enrollments, got %d: %v", gotE.NumRows(), gotE.Rows)
	}
}

func TestApplyGender(t *testing.T) {
	e := New(roles.Default())
	gotS, gotE := e.Apply(studentsFixture(t), enrollmentsFixture(t), Selection{
		Cycle: All, Location: All, Status: All, Gender: "Feminino",
	})
	if gotE.NumRows() != 4 {
		t.Fatalf("expected 4 female enrollments, got %d", gotE.NumRows())
	}
	// Students carry no gender column, so they pass through untouched.
	if gotS.NumRows() != 5 {
		t.Fatalf("students should be unchanged, got %d", gotS.NumRows())
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	e := New(roles.Default())
	sel := Selection{Cycle: "1", Location: All, Status: "CURSANDO", Gender: All}

	s1, e1 := e.Apply(studentsFixture(t), enrollmentsFixture(t), sel)
	s2, e2 := e.Apply(s1, e1, sel)
	if s2.NumRows() != s1.NumRows() || e2.NumRows() != e1.NumRows() {
		t.Fatalf("second application changed counts: %d->%d, %d->%d",
			s1.NumRows(), s2.NumRows(), e1.NumRows(), e2.NumRows())
	}
}

func TestCycleFromSurveyName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Avaliação MCOM 2 Ciclo", "2"},
		{"2º CICLO - Avaliação MCOM", "2"},
		{"3ª Ciclo MKT Digital", "3"},
		{"2o ciclo avaliação mcom", "2"},
		{"AVALIAÇÃO MKT DIGITAL 3CICLO", "3"},
		{"Avaliação MKT Digital", "1"},
		{"Avaliação MCOM", "1"},
		{"Pesquisa de satisfação", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := CycleFromSurveyName(c.in); got != c.want {
			t.Fatalf("CycleFromSurveyName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func evaluationsFixture(t *testing.T) *table.Table {
	t.Helper()
	tab := table.New("avaliacoes", []string{"ID do usuário", "COMO AVALIA O CURSO?", pivot.CycleColumn, pivot.SurveyColumn})
	for _, r := range [][]string{
		{"ana@ex.com", "Ótimo", "1", "Avaliação MCOM"},
		{"bia@ex.com", "Bom", "1.0", "Avaliação MCOM"},
		{"caio@ex.com", "Regular", "2", "Avaliação MCOM 2 Ciclo"},
		{"davi@ex.com", "Bom", "2", "Avaliação MCOM 2 Ciclo"},
	} {
		tab.AppendRow(r)
	}
	return tab
}

func TestApplyEvaluationsCycleOnly(t *testing.T) {
	e := New(roles.Default())
	students, enrollments := studentsFixture(t), enrollmentsFixture(t)
	evals := evaluationsFixture(t)

	got := e.ApplyEvaluations(evals, students, enrollments, students, enrollments, "1")
	if got.NumRows() != 2 {
		t.Fatalf("expected 2 cycle-1 evaluations, got %d: %v", got.NumRows(), got.Rows)
	}
	// "1.0" in the cycle column still counts as cycle 1.
	if got.Value(1, "COMO AVALIA O CURSO?") != "Bom" {
		t.Fatalf("unexpected rows: %v", got.Rows)
	}
}

func TestApplyEvaluationsPropagation(t *testing.T) {
	e := New(roles.Default())
	orig := studentsFixture(t)
	origEnr := enrollmentsFixture(t)
	students, enrollments := e.Apply(orig, origEnr, Selection{
		Cycle: All, Location: All, Status: "CURSANDO", Gender: All,
	})

	got := e.ApplyEvaluations(evaluationsFixture(t), students, enrollments, orig, origEnr, All)
	for _, row := range got.Rows {
		if row[0] == "davi@ex.com" {
			t.Fatalf("evaluation of filtered-out student survived: %v", row)
		}
	}
	if got.NumRows() != 3 {
		t.Fatalf("expected 3 evaluations, got %d", got.NumRows())
	}
}

func TestApplyEvaluationsUnmatchedCycleReturnsAll(t *testing.T) {
	e := New(roles.Default())
	students, enrollments := studentsFixture(t), enrollmentsFixture(t)
	evals := evaluationsFixture(t)

	got := e.ApplyEvaluations(evals, students, enrollments, students, enrollments, "9")
	if got.NumRows() != evals.NumRows() {
		t.Fatalf("cycle with no data should fall back to the full table, got %d rows", got.NumRows())
	}
}
