/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with a small
	restaurant's stock ledger, so every report has realistic data to show.

AVAILABLE SCENARIOS:

	bistro-march:          Two months of purchases, usage and waste; the
	                       worked example item (tomatoes) is included
	revenue-group-change:  A category moves between revenue groups, with a
	                       same-day reassignment that tests the tie-break
	voided-entries:        Mistyped purchases voided after the fact

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Write the operation catalog the Reporter uses
 3. Create categories, revenue groups and items
 4. Record revenue-group history and monthly revenue
 5. Append ledger entries, voiding some

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "bistro-march"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, s)
 3. Add case to scenarioLoaders

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report handlers that read the seeded data
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/costing"
	"github.com/warp/costing-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:            "bistro-march",
		Name:          "Bistro, March",
		Description:   "Purchases, usage and waste across February and March with monthly revenue",
		ReferenceDate: "2024-03-15",
	},
	{
		ID:            "revenue-group-change",
		Name:          "Revenue Group Change",
		Description:   "Desserts move from Food to Bakery Sales mid-month; same-day reassignment back to Food",
		ReferenceDate: "2024-03-15",
	},
	{
		ID:            "voided-entries",
		Name:          "Voided Entries",
		Description:   "Duplicate purchases voided after entry; reports exclude them",
		ReferenceDate: "2024-03-15",
	},
}

type scenarioLoader func(ctx context.Context, s *seeder) error

var scenarioLoaders = map[string]scenarioLoader{
	"bistro-march":         loadBistroMarchScenario,
	"revenue-group-change": loadRevenueGroupChangeScenario,
	"voided-entries":       loadVoidedEntriesScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if s, ok := findScenario(current); ok {
		writeJSON(w, http.StatusOK, s)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	scenario, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", fmt.Errorf("unknown scenario %q", req.ScenarioID))
		return
	}

	resp, err := h.loadScenario(r.Context(), scenario)
	if err != nil {
		h.log().WithError(err).WithField("scenario", scenario.ID).Error("scenario load failed")
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears the store, keeping only the operation catalog.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, scenario ScenarioDTO) (LoadScenarioResponse, error) {
	if err := h.resetStore(ctx); err != nil {
		return LoadScenarioResponse{}, err
	}

	s := &seeder{store: h.Store, ops: h.Reporter.Operations}
	if err := scenarioLoaders[scenario.ID](ctx, s); err != nil {
		return LoadScenarioResponse{}, err
	}

	h.mu.Lock()
	h.currentScenario = scenario.ID
	h.mu.Unlock()

	return LoadScenarioResponse{Scenario: scenario, Items: s.items, Entries: s.entries}, nil
}

func (h *Handler) resetStore(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	for _, op := range h.Reporter.Operations.All() {
		if err := h.Store.SaveOperation(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// =============================================================================
// SEEDER - First-error-wins fixture writer
// =============================================================================

type seeder struct {
	store   *sqlite.Store
	ops     *costing.OperationRegistry
	err     error
	items   int
	entries int
}

func (s *seeder) category(ctx context.Context, id, name string) {
	if s.err == nil {
		s.err = s.store.SaveCategory(ctx, costing.Category{ID: costing.CategoryID(id), Name: name})
	}
}

func (s *seeder) revenueGroup(ctx context.Context, id, name string) {
	if s.err == nil {
		s.err = s.store.SaveRevenueGroup(ctx, costing.RevenueGroup{ID: costing.RevenueGroupID(id), Name: name})
	}
}

func (s *seeder) assign(ctx context.Context, category, group, created string) {
	if s.err == nil {
		s.err = s.store.AssignRevenueGroup(ctx, costing.CategoryID(category), costing.RevenueGroupID(group), date(created))
	}
}

func (s *seeder) item(ctx context.Context, id, name, category, uom string) {
	if s.err == nil {
		s.err = s.store.SaveItem(ctx, costing.Item{
			ID:         costing.ItemID(id),
			Name:       name,
			CategoryID: costing.CategoryID(category),
			UOM:        uom,
		})
		if s.err == nil {
			s.items++
		}
	}
}

func (s *seeder) revenue(ctx context.Context, group, amount, on string) {
	if s.err == nil {
		s.err = s.store.AddRevenueRecord(ctx, costing.RevenueRecord{
			RevenueGroupID: costing.RevenueGroupID(group),
			Amount:         decimal.RequireFromString(amount),
			Date:           date(on),
		})
	}
}

// entry appends qty @ net unit cost with the given tax rate. Operations are
// referenced by code so custom catalogs keep working.
func (s *seeder) entry(ctx context.Context, id, item, opCode, qty, unitNet, taxRate, on string) {
	if s.err != nil {
		return
	}
	op, ok := s.ops.ByCode(opCode)
	if !ok {
		s.err = fmt.Errorf("%w: no operation coded %q", costing.ErrUnknownOperation, opCode)
		return
	}
	net := decimal.RequireFromString(unitNet)
	tax := net.Mul(decimal.RequireFromString(taxRate)).Round(4)
	_, s.err = s.store.AppendEntry(ctx, costing.LedgerEntry{
		ID:          costing.EntryID(id),
		ItemID:      costing.ItemID(item),
		OperationID: op.ID,
		Qty:         decimal.RequireFromString(qty),
		UnitCost:    costing.Cost{Gross: net.Add(tax), Net: net, Tax: tax},
		Date:        date(on),
	})
	if s.err == nil {
		s.entries++
	}
}

func (s *seeder) void(ctx context.Context, id string) {
	if s.err == nil {
		s.err = s.store.SetVoided(ctx, costing.EntryID(id), true)
	}
}

func date(s string) costing.TimePoint {
	tp, err := costing.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Operation codes of the default catalog.
const (
	opPurchase    = costing.CodePurchase
	opStockUsage  = "stock_usage"
	opWaste       = "waste"
	opTransferIn  = "transfer_in"
	opTransferOut = "transfer_out"
)

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func seedBistroReference(ctx context.Context, s *seeder) {
	s.category(ctx, "produce", "Produce")
	s.category(ctx, "meat", "Meat")
	s.category(ctx, "dairy", "Dairy")
	s.category(ctx, "beverages", "Beverages")

	s.revenueGroup(ctx, "food", "Food Sales")
	s.revenueGroup(ctx, "beverage", "Beverage Sales")

	s.assign(ctx, "produce", "food", "2024-01-01")
	s.assign(ctx, "meat", "food", "2024-01-01")
	s.assign(ctx, "dairy", "food", "2024-01-01")
	s.assign(ctx, "beverages", "beverage", "2024-01-01")

	s.item(ctx, "tomato", "Tomatoes", "produce", "kg")
	s.item(ctx, "onion", "Onions", "produce", "kg")
	s.item(ctx, "beef", "Beef Chuck", "meat", "kg")
	s.item(ctx, "cream", "Cream", "dairy", "l")
	s.item(ctx, "cola", "Cola", "beverages", "case")
}

func loadBistroMarchScenario(ctx context.Context, s *seeder) error {
	seedBistroReference(ctx, s)

	// February
	s.entry(ctx, "feb-tomato-1", "tomato", opPurchase, "5", "3.00", "0.10", "2024-02-10")
	s.entry(ctx, "feb-onion-1", "onion", opPurchase, "20", "1.20", "0.10", "2024-02-10")
	s.entry(ctx, "feb-onion-2", "onion", opStockUsage, "8", "1.20", "0.10", "2024-02-25")
	s.entry(ctx, "feb-beef-1", "beef", opPurchase, "30", "12.50", "0.10", "2024-02-12")
	s.entry(ctx, "feb-beef-2", "beef", opStockUsage, "18", "12.50", "0.10", "2024-02-26")
	s.entry(ctx, "feb-cola-1", "cola", opPurchase, "10", "18.00", "0.15", "2024-02-05")

	// March
	s.entry(ctx, "mar-tomato-1", "tomato", opPurchase, "10", "2.00", "0.10", "2024-03-05")
	s.entry(ctx, "mar-tomato-2", "tomato", opStockUsage, "4", "2.00", "0.10", "2024-03-20")
	s.entry(ctx, "mar-onion-1", "onion", opWaste, "2", "1.20", "0.10", "2024-03-03")
	s.entry(ctx, "mar-beef-1", "beef", opPurchase, "25", "13.00", "0.10", "2024-03-08")
	s.entry(ctx, "mar-beef-2", "beef", opStockUsage, "31", "12.80", "0.10", "2024-03-28")
	s.entry(ctx, "mar-cream-1", "cream", opPurchase, "12", "4.50", "0.10", "2024-03-02")
	s.entry(ctx, "mar-cream-2", "cream", opTransferOut, "3", "4.50", "0.10", "2024-03-15")
	s.entry(ctx, "mar-cola-1", "cola", opPurchase, "6", "18.00", "0.15", "2024-03-06")
	s.entry(ctx, "mar-cola-2", "cola", opStockUsage, "11", "18.00", "0.15", "2024-03-30")

	s.revenue(ctx, "food", "4200.00", "2024-02-01")
	s.revenue(ctx, "food", "3800.00", "2024-03-01")
	s.revenue(ctx, "food", "1200.00", "2024-03-01")
	s.revenue(ctx, "beverage", "900.00", "2024-02-01")
	s.revenue(ctx, "beverage", "1500.00", "2024-03-01")
	return s.err
}

func loadRevenueGroupChangeScenario(ctx context.Context, s *seeder) error {
	s.category(ctx, "desserts", "Desserts")
	s.category(ctx, "produce", "Produce")

	s.revenueGroup(ctx, "food", "Food Sales")
	s.revenueGroup(ctx, "bakery", "Bakery Sales")

	s.assign(ctx, "produce", "food", "2024-01-01")
	s.assign(ctx, "desserts", "food", "2024-01-01")
	s.assign(ctx, "desserts", "bakery", "2024-03-10")
	// Same-day correction: the later insert wins.
	s.assign(ctx, "desserts", "food", "2024-03-10")
	s.assign(ctx, "desserts", "bakery", "2024-04-02")

	s.item(ctx, "chocolate", "Dark Chocolate", "desserts", "kg")
	s.item(ctx, "flour", "Flour", "desserts", "kg")
	s.item(ctx, "lemon", "Lemons", "produce", "kg")

	s.entry(ctx, "choc-1", "chocolate", opPurchase, "4", "22.00", "0.10", "2024-03-01")
	s.entry(ctx, "choc-2", "chocolate", opStockUsage, "3", "22.00", "0.10", "2024-03-21")
	s.entry(ctx, "flour-1", "flour", opPurchase, "25", "0.90", "0.00", "2024-03-01")
	s.entry(ctx, "flour-2", "flour", opTransferIn, "5", "0.90", "0.00", "2024-03-12")
	s.entry(ctx, "flour-3", "flour", opStockUsage, "18", "0.90", "0.00", "2024-03-29")
	s.entry(ctx, "lemon-1", "lemon", opPurchase, "6", "2.40", "0.10", "2024-03-04")
	s.entry(ctx, "lemon-2", "lemon", opWaste, "1", "2.40", "0.10", "2024-03-18")

	s.revenue(ctx, "food", "2600.00", "2024-03-01")
	s.revenue(ctx, "bakery", "700.00", "2024-03-01")
	return s.err
}

func loadVoidedEntriesScenario(ctx context.Context, s *seeder) error {
	seedBistroReference(ctx, s)

	s.entry(ctx, "v-tomato-1", "tomato", opPurchase, "10", "2.00", "0.10", "2024-03-05")
	s.entry(ctx, "v-tomato-dup", "tomato", opPurchase, "10", "2.00", "0.10", "2024-03-05")
	s.entry(ctx, "v-tomato-2", "tomato", opStockUsage, "6", "2.00", "0.10", "2024-03-19")
	s.entry(ctx, "v-beef-1", "beef", opPurchase, "12", "13.00", "0.10", "2024-03-08")
	s.entry(ctx, "v-beef-typo", "beef", opPurchase, "120", "13.00", "0.10", "2024-03-08")
	s.entry(ctx, "v-beef-2", "beef", opWaste, "1", "13.00", "0.10", "2024-03-22")

	s.void(ctx, "v-tomato-dup")
	s.void(ctx, "v-beef-typo")

	s.revenue(ctx, "food", "3000.00", "2024-03-01")
	return s.err
}
