package extract

import (
	"context"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet flattens workbook cells into tab-separated rows, one sheet
// after another.
type Spreadsheet struct{}

func (Spreadsheet) Extract(_ context.Context, r io.Reader, _ string) (string, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", 0, err
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", 0, ErrNoContent
	}
	return text, 0, nil
}
