package pivot

import (
	"testing"

	"github.com/evinicim/metalab-insights/internal/roles"
	"github.com/evinicim/metalab-insights/internal/table"
)

const (
	qName  = "QUAL O SEU NOME?"
	qCycle = "EM QUAL CICLO VOCÊ ESTÁ?"
	qEval  = "COMO AVALIA O CURSO?"
)

func longTable(t *testing.T, rows [][]string) *table.Table {
	t.Helper()
	tab := table.New("avaliacoes", []string{"ID do usuário", "Pergunta", "Resposta", "Nome exibido", "Pesquisa"})
	for _, r := range rows {
		tab.AppendRow(r)
	}
	return tab
}

func TestPivotBasic(t *testing.T) {
	tab := longTable(t, [][]string{
		{"u1", qName, "Ana", "Ana", "Avaliação 2 Ciclo"},
		{"u1", qCycle, "2.0", "2.0", "Avaliação 2 Ciclo"},
		{"u1", qEval, "Ótimo", "Ótimo", "Avaliação 2 Ciclo"},
		{"u2", qName, "Bia", "Bia", "Avaliação 2 Ciclo"},
		{"u2", qEval, "Bom", "Bom", "Avaliação 2 Ciclo"},
	})

	wide := New(roles.Default()).Pivot(tab)
	if wide.NumRows() != 2 {
		t.Fatalf("expected 2 wide rows, got %d", wide.NumRows())
	}
	for _, col := range []string{qName, qCycle, qEval, CycleColumn, SurveyColumn} {
		if !wide.HasColumn(col) {
			t.Fatalf("missing column %q in %v", col, wide.Columns)
		}
	}
	if got := wide.Value(0, qName); got != "Ana" {
		t.Fatalf("row 0 name = %q", got)
	}
	if got := wide.Value(1, qEval); got != "Bom" {
		t.Fatalf("row 1 eval = %q", got)
	}
	if got := wide.Value(0, CycleColumn); got != "2" {
		t.Fatalf("cycle should drop trailing .0, got %q", got)
	}
	// u2 never answered the cycle question; the gap is filled from u1.
	if got := wide.Value(1, CycleColumn); got != "2" {
		t.Fatalf("cycle gap not filled, got %q", got)
	}
	if got := wide.Value(1, SurveyColumn); got != "Avaliação 2 Ciclo" {
		t.Fatalf("survey = %q", got)
	}
}

func TestPivotNoQuestionColumnIsNoOp(t *testing.T) {
	tab := table.New("alunos", []string{"NOME", "STATUS"})
	tab.AppendRow([]string{"Ana", "CURSANDO"})

	got := New(roles.Default()).Pivot(tab)
	if got != tab {
		t.Fatalf("wide table should pass through unchanged")
	}
}

func TestPivotDuplicateAnswersKeepFirst(t *testing.T) {
	tab := longTable(t, [][]string{
		{"u1", qName, "Ana", "Ana", ""},
		{"u1", qEval, "Ótimo", "Ótimo", ""},
		{"u1", qEval, "Péssimo", "Péssimo", ""},
	})

	wide := New(roles.Default()).Pivot(tab)
	if wide.NumRows() != 1 {
		t.Fatalf("expected 1 wide row, got %d", wide.NumRows())
	}
	if got := wide.Value(0, qEval); got != "Ótimo" {
		t.Fatalf("first answer should win, got %q", got)
	}
}

func TestPivotRepeatedSubmissionsSplitGroups(t *testing.T) {
	tab := longTable(t, [][]string{
		{"u1", qName, "Ana", "Ana", ""},
		{"u1", qEval, "Bom", "Bom", ""},
		{"u1", qName, "Ana", "Ana", ""},
		{"u1", qEval, "Ótimo", "Ótimo", ""},
	})

	wide := New(roles.Default()).Pivot(tab)
	if wide.NumRows() != 2 {
		t.Fatalf("expected one row per submission, got %d", wide.NumRows())
	}
	if wide.Value(0, qEval) != "Bom" || wide.Value(1, qEval) != "Ótimo" {
		t.Fatalf("submissions mixed: %v", wide.Rows)
	}
}

func TestPivotDiscardsPlaceholderCycles(t *testing.T) {
	tab := longTable(t, [][]string{
		{"u1", qName, "Ana", "Ana", ""},
		{"u1", qCycle, "NaN", "NaN", ""},
	})

	wide := New(roles.Default()).Pivot(tab)
	if wide.HasColumn(CycleColumn) {
		t.Fatalf("placeholder cycle answers should not produce a cycle column")
	}
}
