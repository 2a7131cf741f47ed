package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// ExportHeader returns the export header: fixed columns then one average
// column per subject in enumeration order.
func ExportHeader(subjects []domain.Subject) []string {
	header := []string{"User ID", "Name", "Email", "Total Quizzes", "Average Score", "Last Quiz Date"}
	for _, s := range subjects {
		header = append(header, s.Name)
	}
	return header
}

// ExportRow formats one account. The row always has len(ExportHeader(subjects)) columns.
func ExportRow(s domain.AccountSummary, subjects []domain.Subject) []string {
	name := "N/A"
	if s.Account.FullName != nil && *s.Account.FullName != "" {
		name = *s.Account.FullName
	}

	row := []string{
		strconv.FormatInt(s.Account.ID, 10),
		name,
		s.Account.Email,
		strconv.Itoa(s.Overall.Attempts),
		fmt.Sprintf("%.2f", s.Overall.Average),
		s.Overall.Last.Format(DateTimeLayout),
	}
	for _, sub := range subjects {
		v := "0.00"
		if st, ok := s.Subject(sub.ID); ok {
			v = fmt.Sprintf("%.2f", st.Average)
		}
		row = append(row, v)
	}
	return row
}

// WriteExport writes the header and then every page produced by pages.
// It returns the number of data rows written.
func WriteExport(w io.Writer, subjects []domain.Subject, pages func(yield func([]domain.AccountSummary) error) error) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader(subjects)); err != nil {
		return 0, err
	}

	rows := 0
	if pages != nil {
		err := pages(func(page []domain.AccountSummary) error {
			for _, s := range page {
				if err := cw.Write(ExportRow(s, subjects)); err != nil {
					return err
				}
				rows++
			}
			cw.Flush()
			return cw.Error()
		})
		if err != nil {
			return rows, err
		}
	}

	cw.Flush()
	return rows, cw.Error()
}
