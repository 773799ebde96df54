package fetcher

import "strings"

// Row is one data row keyed by column header.
type Row map[string]string

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// RowsFromTable turns a table whose first row is the header into Rows.
// Header cells are trimmed; rows with no non-blank cell are dropped. Cells
// beyond the header width are ignored.
func RowsFromTable(table [][]string) []Row {
	if len(table) == 0 {
		return nil
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" || i >= len(cells) {
				continue
			}
			row[h] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
