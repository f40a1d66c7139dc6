package core

import "testing"

func entry(mt MovementType, cents int64, src FundsSource) LedgerEntry {
	return LedgerEntry{
		Date:        NewDate(2025, 8, 1),
		Type:        mt,
		Project:     DefaultProject,
		Description: "t",
		Amount:      Money{Cents: cents},
		Source:      src,
	}
}

func TestSummarizeScenario(t *testing.T) {
	entries := []LedgerEntry{
		entry(Inflow, 10000, Bank),
		entry(Outflow, 4000, Cash),
	}
	s := Summarize(entries)

	if s.Inflow.Cents != 10000 || s.Outflow.Cents != 4000 || s.Net.Cents != 6000 {
		t.Fatalf("totals: in=%d out=%d net=%d", s.Inflow.Cents, s.Outflow.Cents, s.Net.Cents)
	}
	if got := s.BySource[Bank].Net.Cents; got != 10000 {
		t.Fatalf("bank net: %d", got)
	}
	if got := s.BySource[Cash].Net.Cents; got != -4000 {
		t.Fatalf("cash net: %d", got)
	}
}

func TestSummarizeInvariants(t *testing.T) {
	entries := []LedgerEntry{
		entry(Inflow, 12550, Bank),
		entry(Inflow, 300, Cash),
		entry(Outflow, 999, Bank),
		entry(Outflow, 4001, Cash),
		entry(Inflow, 0, Bank), // coerced malformed cell contributes nothing
	}
	s := Summarize(entries)

	if s.Net.Cents != s.Inflow.Cents-s.Outflow.Cents {
		t.Fatalf("net invariant broken: %+v", s.Totals)
	}
	var inSum, outSum int64
	for _, st := range s.BySource {
		inSum += st.Inflow.Cents
		outSum += st.Outflow.Cents
	}
	if inSum != s.Inflow.Cents || outSum != s.Outflow.Cents {
		t.Fatalf("per-source sums do not add up: in=%d/%d out=%d/%d",
			inSum, s.Inflow.Cents, outSum, s.Outflow.Cents)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Inflow.Cents != 0 || s.Outflow.Cents != 0 || s.Net.Cents != 0 {
		t.Fatalf("empty ledger must summarize to zero: %+v", s.Totals)
	}
	if s.BySource == nil {
		t.Fatal("BySource must be initialized")
	}
}

func TestGroupByProject(t *testing.T) {
	entries := []LedgerEntry{
		entry(Outflow, 1000, Bank),
		entry(Outflow, 500, Cash),
		entry(Inflow, 9999, Bank), // different movement type, ignored
	}
	entries[1].Project = "Robotica"

	byProject := GroupByProject(entries, Outflow)
	if len(byProject) != 2 {
		t.Fatalf("unexpected groups: %v", byProject)
	}
	if byProject[DefaultProject].Cents != 1000 || byProject["Robotica"].Cents != 500 {
		t.Fatalf("unexpected sums: %v", byProject)
	}
}

func TestGroupByProjectEmpty(t *testing.T) {
	byProject := GroupByProject(nil, Outflow)
	if byProject == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(byProject) != 0 {
		t.Fatalf("expected no groups, got %v", byProject)
	}
}
