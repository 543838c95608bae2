package engine

import (
	"fmt"
	"strings"

	"github.com/evinicim/metalab-insights/internal/filter"
	"github.com/evinicim/metalab-insights/internal/metrics"
)

// Markdown renders the result as a compact plain-text report, one bracketed
// section per view.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[PANORAMA]\n")
	b.WriteString(fmt.Sprintf("Filtros: ciclo=%s local=%s status=%s genero=%s\n",
		orAll(r.Selection.Cycle), orAll(r.Selection.Location), orAll(r.Selection.Status), orAll(r.Selection.Gender)))
	b.WriteString(fmt.Sprintf("Alunos: %d | Inscrições: %d | Avaliações: %d\n\n",
		r.Students.NumRows(), r.Enrollments.NumRows(), r.Evaluations.NumRows()))

	if len(r.StatusTally) > 0 {
		b.WriteString("[STATUS]\n")
		for _, row := range r.StatusTally {
			b.WriteString(fmt.Sprintf("- %s: %d", row.Status, row.Count))
			if len(row.TopCourses) > 0 {
				b.WriteString(" — cursos: " + strings.Join(row.TopCourses, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	writeBuckets(&b, "[FAIXA ETÁRIA]", r.AgeBuckets)
	writeBuckets(&b, "[RENDA FAMILIAR]", r.Income)
	writeBuckets(&b, "[GÊNERO]", r.Genders)
	writeBuckets(&b, "[RAÇA/COR]", r.Races)
	writeBuckets(&b, "[COMO CONHECEU]", r.Channels)
	writeBuckets(&b, "[AVALIAÇÃO DO CURSO]", r.CourseEvals)
	writeBuckets(&b, "[AVALIAÇÃO DOS EDUCADORES]", r.TeacherEvals)
	writeBuckets(&b, "[INSCRIÇÕES POR MÊS]", r.Monthly)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeBuckets(b *strings.Builder, header string, buckets []metrics.Bucket) {
	if len(buckets) == 0 {
		return
	}
	b.WriteString(header + "\n")
	for _, bucket := range buckets {
		b.WriteString(fmt.Sprintf("- %s: %d\n", bucket.Label, bucket.Count))
	}
	b.WriteString("\n")
}

func orAll(v string) string {
	if v == "" {
		return filter.All
	}
	return v
}
