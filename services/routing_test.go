package services

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"college-chatbot-platform/models"
)

func TestDefaultRoutingTable(t *testing.T) {
	table := DefaultRoutingTable()

	if len(table) != len(models.AllCategories) {
		t.Fatalf("table has %d categories, want %d", len(table), len(models.AllCategories))
	}

	lookupFirst := []models.Strategy{models.StrategyLookup, models.StrategyRules, models.StrategyRAG}
	rulesFirst := []models.Strategy{models.StrategyRules, models.StrategyLookup, models.StrategyRAG}

	if got := table[models.CategoryFinancial]; !reflect.DeepEqual(got, lookupFirst) {
		t.Errorf("Financial chain = %v, want %v", got, lookupFirst)
	}
	if got := table[models.CategoryGeneral]; !reflect.DeepEqual(got, rulesFirst) {
		t.Errorf("General chain = %v, want %v", got, rulesFirst)
	}
}

func TestChainForUnknownCategory(t *testing.T) {
	table := DefaultRoutingTable()

	got := table.ChainFor(models.Category("Nonsense"))
	if !reflect.DeepEqual(got, table[models.CategoryGeneral]) {
		t.Errorf("unknown category chain = %v, want General chain", got)
	}
}

func TestLoadRoutingTableMissingFile(t *testing.T) {
	table, err := LoadRoutingTable(filepath.Join(t.TempDir(), "routing_table.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(table, DefaultRoutingTable()) {
		t.Error("missing file should yield the default table")
	}
}

func TestLoadRoutingTableOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing_table.json")
	content := `{"financial": ["rag", "lookup", "rules"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadRoutingTable(path)
	if err != nil {
		t.Fatal(err)
	}

	want := []models.Strategy{models.StrategyRAG, models.StrategyLookup, models.StrategyRules}
	if got := table[models.CategoryFinancial]; !reflect.DeepEqual(got, want) {
		t.Errorf("Financial chain = %v, want %v", got, want)
	}

	// Untouched categories keep their defaults.
	if got := table[models.CategoryAdmissions]; !reflect.DeepEqual(got, DefaultRoutingTable()[models.CategoryAdmissions]) {
		t.Errorf("Admissions chain was not backfilled: %v", got)
	}
	if len(table) != len(models.AllCategories) {
		t.Errorf("table has %d categories, want %d", len(table), len(models.AllCategories))
	}
}

func TestLoadRoutingTableRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown strategy": `{"financial": ["magic"]}`,
		"empty chain":      `{"financial": []}`,
		"not json":         `lookup, rules, rag`,
	}

	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "routing_table.json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadRoutingTable(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
