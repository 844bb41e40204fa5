package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Results"

// Styles are int because excelize.File.NewStyle() returns style index
type Styles struct {
	Number int
	Header int
}

func NewStyles(f *excelize.File) (*Styles, error) {
	numberStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: 0,
	})
	if err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	return &Styles{
		Number: numberStyle,
		Header: headerStyle,
	}, nil
}

// Excel saves the remaining rows of res as a workbook at output.
func Excel(ctx context.Context, res *db.Result, output string) (int, error) {
	f, n, err := workbook(ctx, res)
	if err != nil {
		return n, err
	}
	defer closeFile(ctx, f)

	if err := f.SaveAs(output); err != nil {
		slog.ErrorContext(ctx, "Error saving file", "error", err)
		return n, err
	}
	return n, nil
}

// WriteExcel is Excel writing the workbook to w.
func WriteExcel(ctx context.Context, res *db.Result, w io.Writer) (int, error) {
	f, n, err := workbook(ctx, res)
	if err != nil {
		return n, err
	}
	defer closeFile(ctx, f)

	return n, f.Write(w)
}

func closeFile(ctx context.Context, f *excelize.File) {
	if err := f.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing file", "error", err)
	}
}

func workbook(ctx context.Context, res *db.Result) (*excelize.File, int, error) {
	columns := res.Columns()
	if columns == nil {
		return nil, 0, db.ErrInvalidResource
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		closeFile(ctx, f)
		return nil, 0, err
	}

	n, widths, err := writeSheet(f, res, columns)
	if err != nil {
		slog.ErrorContext(ctx, "Error writing data to sheet", "error", err)
		closeFile(ctx, f)
		return nil, n, err
	}

	for i, width := range widths {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, min(width+2, 80))
	}
	freezeHeader(f)

	return f, n, nil
}

func writeSheet(f *excelize.File, res *db.Result, columns []db.ColumnInfo) (int, []float64, error) {
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, nil, err
	}

	styles, err := NewStyles(f)
	if err != nil {
		return 0, nil, err
	}

	widths := make([]float64, len(columns))
	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = excelize.Cell{Value: c.Name, StyleID: styles.Header}
		widths[i] = float64(len(c.Name))
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return 0, nil, err
	}

	n := 0
	for {
		row, err := res.FetchRow()
		if err != nil {
			return n, nil, err
		}
		if row == nil {
			break
		}

		values := make([]any, len(row))
		for i, v := range row {
			text := cellText(v)
			widths[i] = max(widths[i], float64(len(text)))

			if columns[i].Numeric {
				if num, err := strconv.ParseFloat(text, 64); err == nil {
					values[i] = excelize.Cell{Value: num, StyleID: styles.Number}
					continue
				}
			}
			if v == nil {
				values[i] = nil
			} else {
				values[i] = text
			}
		}

		cell, _ := excelize.CoordinatesToCellName(1, n+2)
		if err := sw.SetRow(cell, values); err != nil {
			return n, nil, err
		}
		n++
	}

	if n > 0 && len(columns) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(columns), n+1)
		enabled := true
		err = sw.AddTable(&excelize.Table{
			Range:          fmt.Sprintf("A1:%s", lastCell),
			Name:           "ResultsTable",
			StyleName:      "TableStyleMedium2",
			ShowRowStripes: &enabled,
		})
		if err != nil {
			return n, nil, err
		}
	}

	return n, widths, sw.Flush()
}

func freezeHeader(f *excelize.File) {
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
