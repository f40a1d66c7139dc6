package core

// Totals groups the three headline figures for a set of movements.
// Net is inflow minus outflow and may be negative.
type Totals struct {
	Inflow  Money
	Outflow Money
	Net     Money
}

// Summary is the dashboard aggregate: overall totals plus the same three
// figures split per source of funds.
type Summary struct {
	Totals
	BySource map[FundsSource]Totals
}

func (t *Totals) add(e LedgerEntry) {
	switch e.Type {
	case Inflow:
		t.Inflow.Cents += e.Amount.Cents
	case Outflow:
		t.Outflow.Cents += e.Amount.Cents
	}
	t.Net.Cents = t.Inflow.Cents - t.Outflow.Cents
}

// Summarize computes totals over the ledger. Entries with unrecognized
// movement types contribute nothing; a zero amount (the coercion result
// for malformed cells) contributes zero. It never fails, including on an
// empty ledger.
func Summarize(entries []LedgerEntry) Summary {
	s := Summary{BySource: map[FundsSource]Totals{
		Bank: {},
		Cash: {},
	}}
	for _, e := range entries {
		s.Totals.add(e)
		st := s.BySource[e.Source]
		st.add(e)
		s.BySource[e.Source] = st
	}
	return s
}

// GroupByProject sums amounts per project string for entries of the given
// movement type. The result is never nil; an empty selection yields an
// empty map.
func GroupByProject(entries []LedgerEntry, mt MovementType) map[string]Money {
	out := make(map[string]Money)
	for _, e := range entries {
		if e.Type != mt {
			continue
		}
		project := e.Project
		if project == "" {
			project = DefaultProject
		}
		sum := out[project]
		sum.Cents += e.Amount.Cents
		out[project] = sum
	}
	return out
}
