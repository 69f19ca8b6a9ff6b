package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ts4z/fanvest/invest"
)

func fetchOpportunities(ctx context.Context, s *session) ([]*invest.Opportunity, error) {
	sub, err := s.client.Opportunities()
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	snap, err := waitFresh(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("can't fetch opportunities: %w", err)
	}
	resp, ok := s.client.OpportunitiesData(snap)
	if !ok {
		return nil, fmt.Errorf("opportunity listing has no data")
	}
	return invest.FromWireList(resp.Data)
}

func confirm(prompt string) (bool, error) {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func investCommand() *cobra.Command {
	var (
		amount string
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "invest [ARTIST]",
		Short: "List funding rounds, or back an artist",
		Long: `With no argument, list the open funding rounds.  With an artist slug
("sophia-martinez") or id ("artist-1", "1"), quote an investment and, once
confirmed, process it.  Nothing is charged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			fctx, cancel := context.WithTimeout(ctx, timeout)
			opps, err := fetchOpportunities(fctx, s)
			cancel()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return renderOpportunities(os.Stdout, opps)
			}

			opp, err := invest.FindBySlug(opps, args[0])
			if err != nil {
				return err
			}
			w := invest.NewWizard(clock, opp)
			if amount != "" {
				if err := w.SetAmount(invest.ClampAmount(amount)); err != nil {
					return err
				}
			}
			renderQuote(os.Stdout, w)
			if err := w.ProceedToPayment(); err != nil {
				return err
			}

			if !yes {
				ok, err := confirm("Invest?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Not invested.")
					return w.Back()
				}
			}

			fmt.Println("Processing...")
			r, err := w.Confirm(ctx)
			if err != nil {
				return err
			}
			renderReceipt(os.Stdout, r)
			return nil
		}),
	}
	cmd.Flags().StringVar(&amount, "amount", "", fmt.Sprintf("Amount in dollars, held to %s..%s (default %s)",
		invest.MinInvestment, invest.MaxInvestment, invest.DefaultAmount))
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Don't ask for confirmation")
	return cmd
}
