package merit

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"meritboard/internal/model"
)

// ReportHeader is the first line of the CSV export.
const ReportHeader = "name,rollNumber,department,batch,totalMerit,totalDemerit,finalScore"

// WriteReport writes one comma-joined row per student after the header.
// Fields are not quoted: a comma inside a name shifts that row's columns.
func WriteReport(w io.Writer, students []model.Student) error {
	if _, err := io.WriteString(w, ReportHeader+"\n"); err != nil {
		return err
	}
	for _, s := range students {
		row := strings.Join([]string{
			s.Name,
			s.RollNumber,
			s.Department,
			s.Batch,
			formatPoints(s.TotalMerit),
			formatPoints(s.TotalDemerit),
			formatPoints(s.FinalScore()),
		}, ",")
		if _, err := io.WriteString(w, row+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// ExportReport renders every student in store order.
func (s *Service) ExportReport(ctx context.Context) ([]byte, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, students); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
