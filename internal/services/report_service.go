package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"finawise/internal/aggregate"
	"finawise/internal/core"
	"finawise/internal/normalize"
	"finawise/internal/store"
)

type (
	// SeriesPoint is one group of a report series, keyed by the grouping
	// dimension (month, category, commune, tier, age). Amounts are raw
	// integer pesos; formatting belongs to the presentation layer.
	SeriesPoint struct {
		Key         string  `json:"key"`
		Income      int64   `json:"income"`
		Expense     int64   `json:"expense"`
		Savings     int64   `json:"savings"`
		Net         int64   `json:"net"`
		SavingsRate float64 `json:"savingsRate"`
		Count       int     `json:"count"`
	}

	// Distribution is a grouped series plus per-group averages (groups with
	// zero transactions excluded from the denominators).
	Distribution struct {
		Points     []SeriesPoint `json:"points"`
		AvgIncome  float64       `json:"avgIncome"`
		AvgExpense float64       `json:"avgExpense"`
	}

	// Summary is the overall roll-up a dashboard shows first.
	Summary struct {
		TotalIncome   int64   `json:"totalIncome"`
		TotalExpense  int64   `json:"totalExpense"`
		TotalSavings  int64   `json:"totalSavings"`
		NetBalance    int64   `json:"netBalance"`
		SavingsRate   float64 `json:"savingsRate"`
		Count         int     `json:"count"`
		RejectedCount int     `json:"rejectedCount"`
		// BestMonth is the month with the highest net balance, empty when
		// there is no data.
		BestMonth string `json:"bestMonth"`
	}
)

// ReportService is the aggregation entry point: it fetches raw transactions
// and users, canonicalizes them, and runs the filter/group/metric pipeline.
// It holds no state between calls; concurrent use needs no locking.
type ReportService struct {
	transactions store.TransactionReader
	users        store.UserReader
	// now is the query clock for age grouping; injectable for tests.
	now func() time.Time
}

func NewReportService(transactions store.TransactionReader, users store.UserReader) *ReportService {
	return &ReportService{
		transactions: transactions,
		users:        users,
		now:          time.Now,
	}
}

// fetch loads both sources concurrently and waits for both. A failure from
// either source degrades to empty input: reports render as empty, never as
// an error page.
func (s *ReportService) fetch(ctx context.Context) ([]core.Transaction, map[string]core.User, []normalize.Rejection) {
	var rawTxs, rawUsers []core.RawRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawTxs, err = s.transactions.ListTransactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rawUsers, err = s.users.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Report fetch failed, degrading to empty input", "error", err)
		return nil, nil, nil
	}

	txs, rejected := normalize.Transactions(rawTxs)
	for _, rej := range rejected {
		slog.WarnContext(ctx, "Transaction rejected during normalization",
			"id", rej.RecordID, "reason", string(rej.Reason), "detail", rej.Detail)
	}
	return txs, normalize.Users(rawUsers), rejected
}

// Overview computes the overall summary for the given criteria.
func (s *ReportService) Overview(ctx context.Context, crit aggregate.Criteria) Summary {
	txs, users, rejected := s.fetch(ctx)
	txs = aggregate.Apply(txs, users, aggregate.BuildFilter(crit))

	byMonth := aggregate.Group(txs, users, aggregate.ByMonth())
	total := aggregate.Totals(byMonth)
	best, _ := aggregate.BestPeriod(byMonth, aggregate.MetricNet)

	return Summary{
		TotalIncome:   total.IncomeSum,
		TotalExpense:  total.ExpenseSum,
		TotalSavings:  total.SavingsSum,
		NetBalance:    aggregate.NetBalance(total),
		SavingsRate:   aggregate.SavingsRate(total),
		Count:         total.Count,
		RejectedCount: len(rejected),
		BestMonth:     best,
	}
}

// MonthlyTrend returns the month-by-month series, chronologically ordered.
func (s *ReportService) MonthlyTrend(ctx context.Context, crit aggregate.Criteria) []SeriesPoint {
	return s.series(ctx, crit, aggregate.ByMonth())
}

func (s *ReportService) CategoryBreakdown(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.ByCategory())
}

func (s *ReportService) SubCategoryBreakdown(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.BySubCategory())
}

func (s *ReportService) CommuneBreakdown(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.ByCommune())
}

func (s *ReportService) RegionBreakdown(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.ByRegion())
}

func (s *ReportService) HealthDistribution(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.ByFinancialHealth())
}

func (s *ReportService) AgeDistribution(ctx context.Context, crit aggregate.Criteria) Distribution {
	return s.distribution(ctx, crit, aggregate.ByAge(s.now()))
}

func (s *ReportService) series(ctx context.Context, crit aggregate.Criteria, key aggregate.KeyFunc) []SeriesPoint {
	txs, users, _ := s.fetch(ctx)
	txs = aggregate.Apply(txs, users, aggregate.BuildFilter(crit))
	return seriesFromGroups(aggregate.Group(txs, users, key))
}

func (s *ReportService) distribution(ctx context.Context, crit aggregate.Criteria, key aggregate.KeyFunc) Distribution {
	txs, users, _ := s.fetch(ctx)
	txs = aggregate.Apply(txs, users, aggregate.BuildFilter(crit))
	groups := aggregate.Group(txs, users, key)
	return Distribution{
		Points:     seriesFromGroups(groups),
		AvgIncome:  aggregate.AveragePerGroup(groups, aggregate.MetricIncome),
		AvgExpense: aggregate.AveragePerGroup(groups, aggregate.MetricExpense),
	}
}

func seriesFromGroups(groups aggregate.Groups) []SeriesPoint {
	keys := aggregate.SortedKeys(groups)
	points := make([]SeriesPoint, 0, len(keys))
	for _, k := range keys {
		acc := groups[k]
		points = append(points, SeriesPoint{
			Key:         k,
			Income:      acc.IncomeSum,
			Expense:     acc.ExpenseSum,
			Savings:     acc.SavingsSum,
			Net:         aggregate.NetBalance(acc),
			SavingsRate: aggregate.SavingsRate(acc),
			Count:       acc.Count,
		})
	}
	return points
}
