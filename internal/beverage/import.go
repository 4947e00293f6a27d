package beverage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"beverage-backend/internal/apperror"
	"beverage-backend/internal/models"
	"beverage-backend/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const defaultImportReason = "Stock import"

var trailingQuantity = regexp.MustCompile(`\s+[\d.,]+\s*(?:ml|l|g|kg|cups?|bags?|bottles?)$`)

// ImportResult reports what a spreadsheet import did, row by row.
type ImportResult struct {
	Applied   int           `json:"applied"`
	Unmatched []string      `json:"unmatched"`
	Errors    []string      `json:"errors"`
	Changes   []StockResult `json:"changes"`
}

// normalizeName lowercases, collapses whitespace and drops a trailing size
// such as "500ml" or "1 cup" so sheet names match catalogue names.
func normalizeName(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimSpace(trailingQuantity.ReplaceAllString(s, ""))
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimSpace(row[0]))
	return strings.Contains(first, "BEVERAGE") || strings.Contains(first, "NAME")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// ImportStock applies one stock movement per row of the first sheet. Columns
// are beverage name, quantity, optional reason and optional type. Rows that
// fail validation are reported and skipped. Every applied row is its own
// ledger entry.
func (s *Service) ImportStock(ctx context.Context, r io.Reader, actorID uint) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperror.Validation("Could not read the Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperror.Validation("The Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperror.Validation("Could not read the first sheet")
	}
	first := 1
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
		first = 2
	}
	if len(rows) == 0 {
		return nil, apperror.Validation("The Excel file is empty")
	}

	all, _, err := s.store.Beverages.List(ctx, repository.BeverageFilter{})
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint, len(all))
	for _, b := range all {
		byName[normalizeName(b.Name)] = b.ID
	}

	res := &ImportResult{Unmatched: []string{}, Errors: []string{}, Changes: []StockResult{}}
	for i, row := range rows {
		name := cell(row, 0)
		if name == "" {
			continue
		}
		line := i + first
		id, ok := byName[normalizeName(name)]
		if !ok {
			res.Unmatched = append(res.Unmatched, name)
			continue
		}
		qty, err := strconv.Atoi(cell(row, 1))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: invalid quantity %q", line, cell(row, 1)))
			continue
		}
		req := StockRequest{
			Quantity: qty,
			Reason:   cell(row, 2),
			Type:     models.TransactionType(strings.ToLower(cell(row, 3))),
		}
		if req.Reason == "" {
			req.Reason = defaultImportReason
		}
		change, err := s.AdjustStock(ctx, id, req, actorID)
		if ae, ok := apperror.As(err); ok {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", line, ae.Message))
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Applied++
		res.Changes = append(res.Changes, *change)
	}

	s.log.WithFields(logrus.Fields{
		"applied":   res.Applied,
		"unmatched": len(res.Unmatched),
		"errors":    len(res.Errors),
	}).Info("stock import finished")
	return res, nil
}
