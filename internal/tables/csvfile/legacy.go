package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"caixinha/internal/core"
)

// Legacy spreadsheet exports shard the ledger per month and lay inflows
// and outflows side by side: a date/amount/description group for
// "Entradas" and a second group for "Saidas" on the same row. The first
// line is usually a title, so the header is found by scanning for the
// "Entradas" column. These files predate both the project and the source
// columns.

var errNoLegacyHeader = errors.New("legacy header not found")

// ReadLegacyMonth parses one month-sharded export into canonical ledger
// entries. Rows may fill either column group, or both.
func ReadLegacyMonth(r io.Reader) ([]core.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse legacy month file: %w", err)
	}

	headerRow, inIdx, outIdx := -1, -1, -1
	for i, row := range records {
		in := legacyColumn(row, "Entradas")
		out := legacyColumn(row, "Saidas", "Saídas")
		if in >= 0 && out >= 0 {
			headerRow, inIdx, outIdx = i, in, out
			break
		}
	}
	if headerRow < 0 {
		return nil, errNoLegacyHeader
	}

	var entries []core.LedgerEntry
	for _, row := range records[headerRow+1:] {
		if e, ok := legacyEntry(row, inIdx, core.Inflow); ok {
			entries = append(entries, e)
		}
		if e, ok := legacyEntry(row, outIdx, core.Outflow); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// legacyEntry builds an entry from one column group: the date sits left
// of the amount column, the description right of it.
func legacyEntry(row []string, amountIdx int, mt core.MovementType) (core.LedgerEntry, bool) {
	amount := core.LenientCents(cell(row, amountIdx))
	desc := cell(row, amountIdx+1)
	if amount == 0 && desc == "" {
		return core.LedgerEntry{}, false
	}
	date, _ := core.ParseDate(cell(row, amountIdx-1))
	return core.LedgerEntry{
		Date:        date,
		Type:        mt,
		Project:     core.DefaultProject,
		Description: desc,
		Amount:      core.Money{Cents: amount},
		Source:      core.Bank,
	}, true
}

// ReadLegacyControl parses the fixed debtor-control export. The member
// column is "Petiano"; the balance is the right-most column whose header
// contains "Total devedor".
func ReadLegacyControl(r io.Reader) ([]core.Debtor, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse legacy control file: %w", err)
	}

	headerRow, nameIdx, dueIdx := -1, -1, -1
	for i, row := range records {
		name := legacyColumn(row, "Petiano")
		if name < 0 {
			continue
		}
		due := -1
		for j, h := range row {
			if strings.Contains(strings.ToLower(h), "total devedor") {
				due = j
			}
		}
		if due >= 0 {
			headerRow, nameIdx, dueIdx = i, name, due
			break
		}
	}
	if headerRow < 0 {
		return nil, errNoLegacyHeader
	}

	var debtors []core.Debtor
	for _, row := range records[headerRow+1:] {
		name := cell(row, nameIdx)
		if name == "" {
			continue
		}
		debtors = append(debtors, core.Debtor{
			Name:      name,
			AmountDue: core.Money{Cents: core.LenientCents(cell(row, dueIdx))},
		})
	}
	return debtors, nil
}

func legacyColumn(row []string, names ...string) int {
	for i, h := range row {
		h = strings.TrimSpace(h)
		for _, name := range names {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}
