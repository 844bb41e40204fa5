package table

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/kendallb/PhalangerMySql/internal/styles"
	"github.com/mattn/go-runewidth"
)

const defaultCellWidth = 20

type Options struct {
	CellWidth int
	// MaxRows stops rendering after that many rows. Zero means no limit.
	MaxRows int
}

// Render writes the remaining rows of res as a table and returns how many
// rows were written.
func Render(w io.Writer, res *db.Result, opts Options) (int, error) {
	width := opts.CellWidth
	if width <= 0 {
		width = defaultCellWidth
	}

	columns := res.Columns()
	if columns == nil {
		return 0, db.ErrInvalidResource
	}

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = styles.TableHeader.Render(formatCell(c.Name, width))
	}
	if _, err := fmt.Fprintln(w, joinCells(header)); err != nil {
		return 0, err
	}

	n := 0
	for opts.MaxRows == 0 || n < opts.MaxRows {
		row, err := res.FetchRow()
		if err != nil {
			return n, err
		}
		if row == nil {
			break
		}

		cells := make([]string, len(row))
		for i, v := range row {
			style := styles.TableCell
			if v == nil {
				style = styles.TableNull
			}
			cells[i] = style.Render(formatCell(CellText(v), width))
		}
		if _, err := fmt.Fprintln(w, joinCells(cells)); err != nil {
			return n, err
		}
		n++
	}

	footer := fmt.Sprintf("%dx%d", n, len(columns))
	if _, err := fmt.Fprintln(w, styles.Faint.Render(footer)); err != nil {
		return n, err
	}
	return n, nil
}

// RenderFields writes the schema of res, one field per line.
func RenderFields(w io.Writer, res *db.Result) error {
	columns := res.Columns()
	if columns == nil {
		return db.ErrInvalidResource
	}

	header := []string{"name", "type", "length", "flags"}
	for i, h := range header {
		header[i] = styles.TableHeader.Render(formatCell(h, defaultCellWidth))
	}
	if _, err := fmt.Fprintln(w, joinCells(header)); err != nil {
		return err
	}

	for _, c := range columns {
		cells := []string{c.Name, string(c.Tag), strconv.Itoa(c.Length), c.Flags()}
		for i, text := range cells {
			cells[i] = styles.TableCell.Render(formatCell(text, defaultCellWidth))
		}
		if _, err := fmt.Fprintln(w, joinCells(cells)); err != nil {
			return err
		}
	}
	return nil
}

// CellText is the single-line text shown for a field value.
func CellText(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return flatten(v)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return flatten(fmt.Sprint(v))
	}
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

func formatCell(content string, width int) string {
	if runewidth.StringWidth(content) > width {
		content = runewidth.Truncate(content, width, "…")
	}
	return runewidth.FillRight(content, width)
}

func joinCells(cells []string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, interleave(cells, styles.TableBorder.Render("│"))...)
}

func interleave(cells []string, sep string) []string {
	out := make([]string, 0, 2*len(cells))
	for i, c := range cells {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, c)
	}
	return out
}
