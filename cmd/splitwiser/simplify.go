package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/models"
)

// ledgerFile is the offline input: expenses and direct transactions in the
// same loose shapes the API accepts.
type ledgerFile struct {
	Expenses     []models.ExpenseRecord     `json:"expenses"`
	Transactions []models.TransactionRecord `json:"transactions"`
}

type ledgerReport struct {
	Obligations int                              `json:"obligations"`
	Totals      map[string]calculator.UserTotals `json:"totals"`
	Payments    []calculator.Payment             `json:"payments"`
}

func simplifyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "simplify <file.json>",
		Short: "Compute balances and suggested payments from a JSON ledger file",
		Long: `simplify reads {"expenses": [...], "transactions": [...]} from a file
(or stdin when the file is "-") and prints each person's totals and the
fewest payments that settle everyone. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			report, err := simplifyLedger(in)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// simplifyLedger normalizes every record, aggregates the open obligations and
// simplifies the result. Any invalid record fails the whole run.
func simplifyLedger(r io.Reader) (*ledgerReport, error) {
	var file ledgerFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}

	var obligations []models.Obligation
	for i, rec := range file.Expenses {
		obs, err := calculator.NormalizeExpense(rec)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		obligations = append(obligations, obs...)
	}
	for i, rec := range file.Transactions {
		ob, err := calculator.NormalizeTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		obligations = append(obligations, ob)
	}

	balances := calculator.Aggregate(obligations)
	payments, err := calculator.SimplifyDebts(balances)
	if err != nil {
		return nil, err
	}
	return &ledgerReport{
		Obligations: len(obligations),
		Totals:      calculator.PerUserTotals(balances),
		Payments:    payments,
	}, nil
}

func printReport(w io.Writer, report *ledgerReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tOWED\tOWES\tNET")
	for _, id := range sortedUsers(report.Totals) {
		t := report.Totals[id]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, t.Owed.StringFixed(2), t.Owes.StringFixed(2), t.Net().StringFixed(2))
	}
	tw.Flush()

	fmt.Fprintln(w)
	if len(report.Payments) == 0 {
		fmt.Fprintln(w, "Everyone is settled up.")
		return
	}
	fmt.Fprintf(w, "%d payment(s) settle everything:\n", len(report.Payments))
	for _, p := range report.Payments {
		fmt.Fprintf(w, "  %s pays %s %s\n", p.FromID, p.ToID, p.Amount.StringFixed(2))
	}
}

func sortedUsers(totals map[string]calculator.UserTotals) []string {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
