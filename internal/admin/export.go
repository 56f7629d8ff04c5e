package admin

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/tealeg/xlsx"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

// Export writes every row of entity to w as an .xlsx workbook with one
// sheet. The list columns come first, then any other columns in
// alphabetical order.
func (s *Service) Export(ctx context.Context, name string, w io.Writer) (int, error) {
	entity, email, err := s.authorize(ctx, name)
	if err != nil {
		return 0, err
	}

	var rows []Row
	if _, err := s.store.Select(ctx, entity.Table, catalog.Query{Order: "id.asc"}, &rows); err != nil {
		return 0, err
	}

	headers := exportColumns(entity, rows)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(entity.Title)
	if err != nil {
		return 0, fmt.Errorf("creating sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range headers {
		headerRow.AddCell().SetString(h)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, h := range headers {
			cell := row.AddCell()
			switch v := r[h].(type) {
			case float64:
				cell.SetFloat(v)
			case bool:
				cell.SetBool(v)
			default:
				cell.SetString(FormatCell(v))
			}
		}
	}

	if err := file.Write(w); err != nil {
		return 0, fmt.Errorf("writing workbook: %w", err)
	}
	s.logger.Info("admin exported", "table", entity.Table, "rows", len(rows), "by", email)
	return len(rows), nil
}

func exportColumns(entity EntitySpec, rows []Row) []string {
	seen := make(map[string]bool)
	var headers []string
	for _, c := range entity.Columns {
		seen[c] = true
		headers = append(headers, c)
	}

	var extra []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(headers, extra...)
}
