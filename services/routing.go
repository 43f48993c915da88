package services

import (
	"encoding/json"
	"fmt"
	"os"

	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/models"
)

// RoutingTable maps each category to the ordered strategy chain the
// orchestrator walks until one strategy answers confidently. It is
// data, not code: reordering or adding categories is a config change.
type RoutingTable map[models.Category][]models.Strategy

// DefaultRoutingTable reflects observed coverage: curated lookup leads
// for most categories, while General Information tries exact rules
// first because its questions skew toward fixed facts.
func DefaultRoutingTable() RoutingTable {
	lookupFirst := []models.Strategy{models.StrategyLookup, models.StrategyRules, models.StrategyRAG}
	rulesFirst := []models.Strategy{models.StrategyRules, models.StrategyLookup, models.StrategyRAG}

	return RoutingTable{
		models.CategoryAdmissions:      lookupFirst,
		models.CategoryFinancial:       lookupFirst,
		models.CategoryAcademic:        lookupFirst,
		models.CategoryStudentServices: lookupFirst,
		models.CategoryCampusLife:      lookupFirst,
		models.CategoryGeneral:         rulesFirst,
		models.CategoryCrossDomain:     lookupFirst,
	}
}

// LoadRoutingTable reads a category -> strategy-chain table from a
// JSON file. A missing file yields the default table; an invalid one
// is an error so a typo cannot silently reroute traffic.
func LoadRoutingTable(path string) (RoutingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Routing table not found, using defaults", "path", path)
			return DefaultRoutingTable(), nil
		}
		return nil, err
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse routing table %s: %v", path, err)
	}

	table := make(RoutingTable, len(raw))
	for label, chain := range raw {
		category := models.NormalizeCategory(label)
		strategies := make([]models.Strategy, 0, len(chain))
		for _, name := range chain {
			strategy := models.Strategy(name)
			switch strategy {
			case models.StrategyRules, models.StrategyLookup, models.StrategyRAG:
				strategies = append(strategies, strategy)
			default:
				return nil, fmt.Errorf("routing table %s: unknown strategy %q for category %q", path, name, label)
			}
		}
		if len(strategies) == 0 {
			return nil, fmt.Errorf("routing table %s: empty chain for category %q", path, label)
		}
		table[category] = strategies
	}

	// Categories absent from the file keep their default chain.
	for category, chain := range DefaultRoutingTable() {
		if _, ok := table[category]; !ok {
			table[category] = chain
		}
	}

	return table, nil
}

// ChainFor returns the strategy chain for a category. Unknown
// categories get the General Information chain.
func (t RoutingTable) ChainFor(category models.Category) []models.Strategy {
	if chain, ok := t[category]; ok {
		return chain
	}
	return t[models.CategoryGeneral]
}
