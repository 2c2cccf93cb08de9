package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/text"
)

// printColumns prints rows under upper-case headers, the first column in
// bold.
func printColumns(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(text.AlignDefault.Apply(h, widths[i]+2))
	}
	fmt.Println(strings.TrimRight(b.String(), " "))

	for _, row := range rows {
		b.Reset()
		for i, cell := range row {
			if i == 0 {
				cell = text.Bold.Sprint(cell)
			}
			b.WriteString(text.AlignDefault.Apply(cell, widths[i]+2))
		}
		fmt.Println(strings.TrimRight(b.String(), " "))
	}
}
