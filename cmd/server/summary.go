package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/UPool-Fun/UPool-sub000/internal/calc"
)

// printSummary 输出注册表与各资金池概况
func printSummary(out io.Writer, a *app) error {
	stats := a.registry.Stats()
	fmt.Fprintf(out, "owner:       %s\n", stats.Owner.Hex())
	fmt.Fprintf(out, "treasury:    %s\n", stats.Treasury.Hex())
	fmt.Fprintf(out, "pools:       %d (replayed %d)\n", stats.TotalPools, a.pools)
	fmt.Fprintf(out, "fee balance: %d\n", stats.FeeBalance)
	fmt.Fprintf(out, "paused:      %t\n\n", stats.Paused)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tSTATUS\tRAISED\tGOAL\tMILESTONES")
	for _, engine := range a.registry.Pools() {
		s := engine.Stats()
		decimals := calc.CurrencyDecimals(engine.Config().Currency)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			engine.Ref().Hex(),
			s.Status,
			calc.FormatAmount(s.TotalRaised, decimals),
			calc.FormatAmount(s.FundingGoal, decimals),
			s.ApprovedMilestones,
			s.MilestoneCount,
		)
	}
	return w.Flush()
}
