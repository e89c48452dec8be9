package aggregate

import (
	"testing"
	"time"

	"finawise/internal/core"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(id string, typ core.TransactionType, category string, pesos int64, day string) core.Transaction {
	return core.Transaction{
		ID:       id,
		Type:     typ,
		Category: category,
		Amount:   core.Money{Pesos: pesos},
		Date:     date(day),
	}
}

func TestGroupByMonthScenario(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", core.Income, "Sueldo", 100000, "2024-01-05"),
		tx("t2", core.Expense, "Ahorro", 20000, "2024-01-10"),
	}

	groups := Group(txs, nil, ByMonth())
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	acc, ok := groups["2024-01"]
	if !ok {
		t.Fatalf("missing group 2024-01, got keys %v", SortedKeys(groups))
	}
	if acc.IncomeSum != 100000 {
		t.Errorf("incomeSum = %d, want 100000", acc.IncomeSum)
	}
	if acc.ExpenseSum != 20000 {
		t.Errorf("expenseSum = %d, want 20000", acc.ExpenseSum)
	}
	if acc.SavingsSum != 20000 {
		t.Errorf("savingsSum = %d, want 20000", acc.SavingsSum)
	}
	if acc.Count != 2 {
		t.Errorf("count = %d, want 2", acc.Count)
	}
	if rate := SavingsRate(acc); rate != 20 {
		t.Errorf("savingsRate = %v, want 20", rate)
	}
}

func TestGroupReconciliation(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", core.Income, "Sueldo", 500000, "2024-01-05"),
		tx("t2", core.Expense, "Comida", 120000, "2024-01-12"),
		tx("t3", core.Expense, "Ahorro", 50000, "2024-02-01"),
		tx("t4", core.Income, "Bono", 80000, "2024-03-15"),
	}
	txs[1].UserID = "missing-user"

	var wantTotal int64
	for _, x := range txs {
		wantTotal += x.Amount.Pesos
	}

	for name, key := range map[string]KeyFunc{
		"month":    ByMonth(),
		"category": ByCategory(),
		"commune":  ByCommune(),
		"age":      ByAge(time.Now()),
	} {
		groups := Group(txs, nil, key)
		total := Totals(groups)
		if got := total.IncomeSum + total.ExpenseSum; got != wantTotal {
			t.Errorf("%s: group sums total %d, want %d", name, got, wantTotal)
		}
		if total.Count != len(txs) {
			t.Errorf("%s: count = %d, want %d", name, total.Count, len(txs))
		}
	}
}

func TestGroupSimulationExcluded(t *testing.T) {
	base := []core.Transaction{
		tx("t1", core.Income, "Sueldo", 100000, "2024-01-05"),
		tx("t2", core.Expense, "Comida", 30000, "2024-01-08"),
	}
	sim := tx("sim", core.Expense, "Auto", 1000000, "2024-01-09")
	sim.Excluded = true

	with := Group(append(append([]core.Transaction{}, base...), sim), nil, ByMonth())
	without := Group(base, nil, ByMonth())

	if len(with) != len(without) {
		t.Fatalf("group counts differ: %d vs %d", len(with), len(without))
	}
	for k, acc := range without {
		if with[k] != acc {
			t.Errorf("group %q differs with simulation record present: %+v vs %+v", k, with[k], acc)
		}
	}
}

func TestGroupIdempotence(t *testing.T) {
	txs := []core.Transaction{
		tx("t1", core.Income, "Sueldo", 100000, "2024-01-05"),
		tx("t2", core.Expense, "Ahorro", 20000, "2024-01-10"),
		tx("t3", core.Expense, "Comida", 15000, "2024-02-02"),
	}

	first := Group(txs, nil, ByMonth())
	second := Group(txs, nil, ByMonth())

	if len(first) != len(second) {
		t.Fatalf("key sets differ: %v vs %v", SortedKeys(first), SortedKeys(second))
	}
	for k, acc := range first {
		if second[k] != acc {
			t.Errorf("group %q: %+v != %+v", k, acc, second[k])
		}
	}
}

func TestGroupByCommuneUnknownBucket(t *testing.T) {
	users := map[string]core.User{
		"u1": {ID: "u1", Commune: "Providencia"},
		"u2": {ID: "u2"}, // commune absent
	}
	txs := []core.Transaction{
		tx("t1", core.Expense, "Comida", 10000, "2024-01-05"),
		tx("t2", core.Expense, "Comida", 20000, "2024-01-06"),
		tx("t3", core.Expense, "Comida", 40000, "2024-01-07"),
	}
	txs[0].UserID = "u1"
	txs[1].UserID = "u2"
	txs[2].UserID = "u-deleted" // user record gone

	groups := Group(txs, users, ByCommune())

	if groups["Providencia"].ExpenseSum != 10000 {
		t.Errorf("Providencia expense = %d, want 10000", groups["Providencia"].ExpenseSum)
	}
	unknown := groups[core.UnknownKey]
	if unknown.ExpenseSum != 60000 {
		t.Errorf("Unknown bucket expense = %d, want 60000", unknown.ExpenseSum)
	}
	if unknown.Count != 2 {
		t.Errorf("Unknown bucket count = %d, want 2", unknown.Count)
	}

	total := Totals(groups)
	if total.ExpenseSum != 70000 {
		t.Errorf("totals do not reconcile: %d, want 70000", total.ExpenseSum)
	}
}

func TestGroupByAge(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	users := map[string]core.User{
		"u1": {ID: "u1", BirthDate: time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC)},  // 34
		"u2": {ID: "u2", BirthDate: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)}, // 33
		"u3": {ID: "u3"}, // birth date unknown
	}
	txs := []core.Transaction{
		tx("t1", core.Expense, "Comida", 100, "2024-01-05"),
		tx("t2", core.Expense, "Comida", 200, "2024-01-06"),
		tx("t3", core.Expense, "Comida", 400, "2024-01-07"),
	}
	txs[0].UserID = "u1"
	txs[1].UserID = "u2"
	txs[2].UserID = "u3"

	groups := Group(txs, users, ByAge(now))

	if groups["34"].ExpenseSum != 100 {
		t.Errorf("age 34 expense = %d, want 100", groups["34"].ExpenseSum)
	}
	if groups["33"].ExpenseSum != 200 {
		t.Errorf("age 33 expense = %d, want 200", groups["33"].ExpenseSum)
	}
	if groups[core.UnknownKey].ExpenseSum != 400 {
		t.Errorf("Unknown expense = %d, want 400", groups[core.UnknownKey].ExpenseSum)
	}
}

func TestGroupEmptyInput(t *testing.T) {
	groups := Group(nil, nil, ByMonth())
	if len(groups) != 0 {
		t.Errorf("empty input should yield no groups, got %v", SortedKeys(groups))
	}
	total := Totals(groups)
	if total != (Accumulator{}) {
		t.Errorf("empty totals = %+v, want zero accumulator", total)
	}
}
