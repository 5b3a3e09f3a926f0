package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/usageledger/internal/proration"
)

var (
	distStart string
	distEnd   string
	distUnits float64
	distYear  int
	distMax   int
)

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Prorate a bill across calendar months",
	Long: `Splits a bill's units across the calendar months of its billing period by day
count, keeping only the days inside the reporting year. Dates may be ISO
(2024-01-15) or ROC (113/1/15).`,
	RunE: runDistribute,
}

func init() {
	distributeCmd.Flags().StringVar(&distStart, "start", "", "Billing period start date")
	distributeCmd.Flags().StringVar(&distEnd, "end", "", "Billing period end date")
	distributeCmd.Flags().Float64Var(&distUnits, "units", 0, "Billed units")
	distributeCmd.Flags().IntVar(&distYear, "year", 0, "Reporting year (default: year of the end date)")
	distributeCmd.Flags().IntVar(&distMax, "max-days", 0, "Longest accepted billing period (default from config, 70)")
	distributeCmd.MarkFlagRequired("start")
	distributeCmd.MarkFlagRequired("end")
	distributeCmd.MarkFlagRequired("units")
	rootCmd.AddCommand(distributeCmd)
}

func runDistribute(cmd *cobra.Command, args []string) error {
	maxDays := distMax
	if maxDays <= 0 {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		maxDays = cfg.GetMaxBillingDays()
	}

	period, err := proration.ValidateBill(distStart, distEnd, distUnits, maxDays)
	if err != nil {
		return describe(err)
	}
	year := distYear
	if year <= 0 {
		year = period.End.Year()
	}

	fmt.Printf("Billing period: %s → %s (ROC %s → %s), %d days\n",
		period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"),
		proration.FormatROC(period.Start), proration.FormatROC(period.End),
		proration.BillingDays(period.Start, period.End))
	fmt.Printf("Units in %d: %.2f of %.2f\n", year, proration.EffectiveUnits(period, year), period.Units)
	printMonthly(proration.Distribute(period, year))
	return nil
}
