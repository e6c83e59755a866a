// Package export renders a task list as JSON, CSV, or PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nibzard/todo-go/internal/todo"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "csv", "pdf"}

// Write renders tasks to w in format. PDF output uses the core fonts, which
// cover the cp1252 code page only; other runes are printed as '?'.
func Write(w io.Writer, tasks []todo.Task, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, tasks)
	case "csv":
		return writeCSV(w, tasks)
	case "pdf":
		return writePDF(w, tasks)
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeJSON(w io.Writer, tasks []todo.Task) error {
	if tasks == nil {
		tasks = []todo.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeCSV(w io.Writer, tasks []todo.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "completed"}); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := cw.Write([]string{t.ID, t.Title, strconv.FormatBool(t.Completed)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePDF(w io.Writer, tasks []todo.Task) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Tasks")
	pdf.Ln(12)

	done := 0
	pdf.SetFont("Arial", "", 11)
	for _, t := range tasks {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
			done++
		}
		pdf.MultiCell(0, 7, tr(codePageText(fmt.Sprintf("%s %s", box, t.Title))), "0", "L", false)
	}
	if len(tasks) == 0 {
		pdf.MultiCell(0, 7, "No tasks.", "0", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 9)
	pdf.Cell(40, 6, fmt.Sprintf("%d of %d completed", done, len(tasks)))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// cp1252Extras are the runes cp1252 places in 0x80-0x9F.
var cp1252Extras = map[rune]bool{
	'\u20ac': true, '\u201a': true, '\u0192': true, '\u201e': true, '\u2026': true,
	'\u2020': true, '\u2021': true, '\u02c6': true, '\u2030': true, '\u0160': true,
	'\u2039': true, '\u0152': true, '\u017d': true, '\u2018': true, '\u2019': true,
	'\u201c': true, '\u201d': true, '\u2022': true, '\u2013': true, '\u2014': true,
	'\u02dc': true, '\u2122': true, '\u0161': true, '\u203a': true, '\u0153': true,
	'\u017e': true, '\u0178': true,
}

// codePageText replaces runes the core PDF fonts cannot show with '?'.
func codePageText(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || (r >= 0xA0 && r <= 0xFF) || cp1252Extras[r] {
			return r
		}
		return '?'
	}, s)
}
