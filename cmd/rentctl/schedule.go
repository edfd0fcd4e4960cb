package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/rent"
	"github.com/pavitra93/go-property-management/shared/utils"
)

type scheduleOptions struct {
	start    string
	end      string
	rent     string
	deposit  string
	dueDay   int
	charges  []string
	currency string
	locale   string
	asJSON   bool
}

// ScheduleCmd prints the obligations a tenancy would generate
func ScheduleCmd() *cobra.Command {
	opts := &scheduleOptions{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the rent schedule for a tenancy",
		Example: `  rentctl schedule --start 2025-01-15 --end 2025-03-14 --rent 3000 --due-day 1 --deposit 1500
  rentctl schedule --start 2025-01-01 --end 2025-12-31 --rent 950 --charge parking=40 --charge "bin collection=12.50"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := opts.params()
			if err != nil {
				return err
			}
			if err := params.Validate(); err != nil {
				return err
			}
			schedule := rent.GenerateSchedule(params)
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(schedule)
			}
			return printSchedule(cmd.OutOrStdout(), schedule, config.NewLocale(opts.currency, opts.locale))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.start, "start", "", "first day of the tenancy (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "last day of the tenancy (YYYY-MM-DD)")
	f.StringVar(&opts.rent, "rent", "", "monthly rent")
	f.StringVar(&opts.deposit, "deposit", "0", "deposit due on the start date")
	f.IntVar(&opts.dueDay, "due-day", 0, "day of month rent is due (defaults to the start day)")
	f.StringArrayVar(&opts.charges, "charge", nil, "monthly service charge as name=amount, repeatable")
	f.StringVar(&opts.currency, "currency", config.DefaultLocale.Currency, "ISO currency code for totals")
	f.StringVar(&opts.locale, "locale", config.DefaultLocale.Language, "language tag for number formatting")
	f.BoolVar(&opts.asJSON, "json", false, "print the schedule as JSON")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("rent")

	return cmd
}

func (o *scheduleOptions) params() (rent.ScheduleParams, error) {
	start, err := utils.ParseDate(o.start)
	if err != nil {
		return rent.ScheduleParams{}, fmt.Errorf("--start: %w", err)
	}
	end, err := utils.ParseDate(o.end)
	if err != nil {
		return rent.ScheduleParams{}, fmt.Errorf("--end: %w", err)
	}
	monthly, err := decimal.NewFromString(o.rent)
	if err != nil {
		return rent.ScheduleParams{}, fmt.Errorf("--rent: %w", err)
	}
	deposit, err := decimal.NewFromString(o.deposit)
	if err != nil {
		return rent.ScheduleParams{}, fmt.Errorf("--deposit: %w", err)
	}

	p := rent.ScheduleParams{
		StartDate:   start,
		EndDate:     end,
		MonthlyRent: monthly,
		DueDay:      o.dueDay,
		Deposit:     deposit,
	}
	if p.DueDay == 0 {
		p.DueDay = start.Day()
	}
	for _, raw := range o.charges {
		name, amount, ok := strings.Cut(raw, "=")
		if !ok {
			return rent.ScheduleParams{}, fmt.Errorf("--charge %q: expected name=amount", raw)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return rent.ScheduleParams{}, fmt.Errorf("--charge %q: %w", raw, err)
		}
		p.ServiceCharges = append(p.ServiceCharges, rent.ServiceCharge{Name: strings.TrimSpace(name), Amount: value})
	}
	return p, nil
}

func printSchedule(out io.Writer, schedule []rent.Obligation, locale config.Locale) error {
	if len(schedule) == 0 {
		_, err := fmt.Fprintln(out, "No obligations.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DUE\tKIND\tNAME\tPERIOD\tAMOUNT\t")
	for _, o := range schedule {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s..%s\t%s\t\n",
			o.DueDate.Format(utils.DateLayout), o.Kind, o.Name,
			o.PeriodStart.Format(utils.DateLayout), o.PeriodEnd.Format(utils.DateLayout),
			o.AmountDue.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rent total:  %s\n", locale.FormatMoney(rent.TotalByKind(schedule, rent.KindRent)))
	fmt.Fprintf(out, "Grand total: %s\n", locale.FormatMoney(rent.Total(schedule)))
	return nil
}
