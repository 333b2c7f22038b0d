package api

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of stock flow exports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var stockFlowHeaders = []string{"ID", "SKU ID", "Type", "Delta", "Balance", "Reason", "Operator", "Created At"}

// WriteStockFlowWorkbook renders flows as a single-sheet workbook with the
// same columns the backend export uses.
func WriteStockFlowWorkbook(w io.Writer, flows []StockFlow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := make([]any, len(stockFlowHeaders))
	for i, h := range stockFlowHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, fl := range flows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{fl.ID, fl.SKUID, fl.Type, fl.Delta, fl.Balance, fl.Reason, fl.OperatorID, fl.CreatedAt.UTC().Format(time.RFC3339)}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

// ParseStockFlowWorkbook reads the first sheet of an exported workbook.
// Columns are located by header name, so reordered exports still parse.
// Rows without an ID are skipped.
func ParseStockFlowWorkbook(r io.Reader) ([]StockFlow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %v", ErrInvalidResponse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidResponse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading rows: %v", ErrInvalidResponse, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("%w: missing ID column", ErrInvalidResponse)
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]StockFlow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		idText := cell(row, "id")
		if idText == "" {
			continue
		}
		var fl StockFlow
		var perr error
		parseInt := func(name string) int64 {
			s := cell(row, name)
			if s == "" || perr != nil {
				return 0
			}
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				perr = fmt.Errorf("%w: row %d column %q: %v", ErrInvalidResponse, n+2, name, err)
			}
			return v
		}
		fl.ID = parseInt("id")
		fl.SKUID = parseInt("sku id")
		fl.Delta = int(parseInt("delta"))
		fl.Balance = int(parseInt("balance"))
		fl.OperatorID = parseInt("operator")
		if perr != nil {
			return nil, perr
		}
		fl.Type = cell(row, "type")
		fl.Reason = cell(row, "reason")
		if ts := cell(row, "created at"); ts != "" {
			t, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d created at: %v", ErrInvalidResponse, n+2, err)
			}
			fl.CreatedAt = t
		}
		out = append(out, fl)
	}
	return out, nil
}
