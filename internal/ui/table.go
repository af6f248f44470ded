package ui

import (
	"strings"
	"text/tabwriter"
)

// Table lays out rows under headers in aligned columns. empty is printed
// instead of the table when there are no rows.
func Table(headers []string, rows [][]string, empty string) string {
	if len(rows) == 0 {
		return empty + "\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	w.Write([]byte(strings.Join(headers, "\t") + "\n"))
	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}
	w.Write([]byte(strings.Join(underline, "\t") + "\n"))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = strings.ReplaceAll(c, "\t", " ")
		}
		w.Write([]byte(strings.Join(cells, "\t") + "\n"))
	}
	w.Flush()
	return b.String()
}

// Section renders a titled block.
func Section(title string, body ...string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(title)))
	b.WriteString("\n")
	for _, part := range body {
		b.WriteString(part)
		if !strings.HasSuffix(part, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// OrDefault returns v, or def when v is empty.
func OrDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
