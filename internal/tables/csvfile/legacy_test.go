package csvfile

import (
	"strings"
	"testing"

	"caixinha/internal/core"
)

const legacyMonth = `Caixinha 2025.2,,,,,,
Data,Entradas,Especificação,,Data,Saídas,Especificação
2025-07-01,50.00,mensalidade Alice,,2025-07-02,30.00,material limpeza
2025-07-05,20.00,mensalidade Bruno,,,,
,,,,2025-07-20,15.50,impressao banner
`

func TestReadLegacyMonth(t *testing.T) {
	entries, err := ReadLegacyMonth(strings.NewReader(legacyMonth))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var inflows, outflows int
	for _, e := range entries {
		switch e.Type {
		case core.Inflow:
			inflows++
		case core.Outflow:
			outflows++
		}
		if e.Source != core.Bank {
			t.Fatalf("legacy rows default to Banco, got %q", e.Source)
		}
		if e.Project != core.DefaultProject {
			t.Fatalf("legacy rows default project, got %q", e.Project)
		}
	}
	if inflows != 2 || outflows != 2 {
		t.Fatalf("inflows=%d outflows=%d entries=%+v", inflows, outflows, entries)
	}

	sum := core.Summarize(entries)
	if sum.Inflow.Cents != 7000 || sum.Outflow.Cents != 4550 {
		t.Fatalf("sums: in=%d out=%d", sum.Inflow.Cents, sum.Outflow.Cents)
	}
}

func TestReadLegacyMonthNoHeader(t *testing.T) {
	if _, err := ReadLegacyMonth(strings.NewReader("a,b,c\n1,2,3\n")); err == nil {
		t.Fatal("expected error when header row is absent")
	}
}

const legacyControl = `Controle 2025.1,,,
Petiano,Cota Julho,Total devedor 2025.1,Obs
Alice,25.00,30.00,
Bruno,25.00,0,
,25.00,10.00,linha sem nome
`

func TestReadLegacyControl(t *testing.T) {
	debtors, err := ReadLegacyControl(strings.NewReader(legacyControl))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(debtors) != 2 {
		t.Fatalf("expected nameless rows skipped, got %+v", debtors)
	}
	if debtors[0].Name != "Alice" || debtors[0].AmountDue.Cents != 3000 {
		t.Fatalf("unexpected first debtor: %+v", debtors[0])
	}
	if debtors[1].Name != "Bruno" || debtors[1].AmountDue.Cents != 0 {
		t.Fatalf("unexpected second debtor: %+v", debtors[1])
	}
}
