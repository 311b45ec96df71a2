package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shipq/conjecture/cli"
)

const maxCellWidth = 40

func printRows(w io.Writer, names []string, rows []map[string]any) error {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(names))
		for j, name := range names {
			cells[i][j] = formatValue(row[name])
		}
	}
	return cli.Table(w, names, cells)
}

// formatValue renders a generated value on one line.
func formatValue(v any) string {
	var s string
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		s = strconv.Quote(v)
	case []byte:
		s = `x'` + hex.EncodeToString(v) + `'`
	case time.Time:
		s = v.Format(time.RFC3339Nano)
	default:
		s = fmt.Sprint(v)
	}
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}
