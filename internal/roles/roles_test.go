package roles

import "testing"

var studentCols = []string{
	"NOME COMPLETO", "E-MAIL", "DATA DE NASCIMENTO", "STATUS", "LOCAL",
	"CICLO", "Qual a renda familiar mensal?", "Sexo:",
}

var enrollmentCols = []string{
	"Carimbo de data/hora", "Endereço de e-mail",
	"SELECIONE A SUA REGIÃO MAIS PRÓXIMA PARA REALIZAR O CURSO:", "Sexo:",
}

func TestResolveBasicRoles(t *testing.T) {
	rs := Default()
	cases := []struct {
		role Role
		want string
	}{
		{Status, "STATUS"},
		{Birthdate, "DATA DE NASCIMENTO"},
		{Income, "Qual a renda familiar mensal?"},
		{Gender, "Sexo:"},
		{Cycle, "CICLO"},
		{Local, "LOCAL"},
	}
	for _, c := range cases {
		got, ok := rs.Resolve(studentCols, c.role)
		if !ok || got != c.want {
			t.Fatalf("Resolve(%s) = %q, %v; want %q", c.role, got, ok, c.want)
		}
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	rs := Default()
	// "data de nascimento" must beat the looser "nasc" group even when a
	// weaker-matching column comes first.
	cols := []string{"ANO NASC", "DATA DE NASCIMENTO"}
	got, ok := rs.Resolve(cols, Birthdate)
	if !ok || got != "DATA DE NASCIMENTO" {
		t.Fatalf("Resolve(birthdate) = %q, %v", got, ok)
	}
}

func TestResolveAbsent(t *testing.T) {
	rs := Default()
	if col, ok := rs.Resolve(enrollmentCols, Status); ok {
		t.Fatalf("expected status unavailable, got %q", col)
	}
	if col, ok := rs.Resolve(enrollmentCols, Region); !ok ||
		col != "SELECIONE A SUA REGIÃO MAIS PRÓXIMA PARA REALIZAR O CURSO:" {
		t.Fatalf("Resolve(region) = %q, %v", col, ok)
	}
}

func TestCompositeAcceptance(t *testing.T) {
	rs := Default()
	cols := []string{
		"Comentários gerais",
		"Como você considerou o curso MetaLab?",
	}
	got, ok := rs.Resolve(cols, CourseEval)
	if !ok || got != "Como você considerou o curso MetaLab?" {
		t.Fatalf("Resolve(course_eval) = %q, %v", got, ok)
	}
	// A column with only one of the two word sets must not match.
	if col, ok := rs.Resolve([]string{"Avaliação geral"}, CourseEval); ok {
		t.Fatalf("single-set column matched composite group: %q", col)
	}
}

func TestResolveIsAccentInsensitive(t *testing.T) {
	rs := Default()
	got, ok := rs.Resolve([]string{"Avalie o Educador Social:"}, TeacherEval)
	if !ok || got != "Avalie o Educador Social:" {
		t.Fatalf("Resolve(teacher_eval) = %q, %v", got, ok)
	}
}

func TestMergeOverridesSingleRole(t *testing.T) {
	rs := Default().Merge(Ruleset{Status: {{All: []string{"situacao"}}}})
	if col, ok := rs.Resolve([]string{"SITUAÇÃO"}, Status); !ok || col != "SITUAÇÃO" {
		t.Fatalf("merged ruleset did not pick up override: %q, %v", col, ok)
	}
	if _, ok := rs.Resolve(studentCols, Cycle); !ok {
		t.Fatalf("merge dropped untouched role")
	}
}
