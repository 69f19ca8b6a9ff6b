package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ts4z/fanvest/invest"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/textutil"
	"github.com/ts4z/fanvest/varz"
)

func heart(liked bool) string {
	if liked {
		return "♥"
	}
	return ""
}

func intPtr(p *int) string {
	if p == nil {
		return "-"
	}
	return textutil.FormatCount(int64(*p))
}

func scorePtr(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 1, 64)
}

// renderTrending prints a listing as a table, numbering rows from the
// listing's page offset.
func renderTrending(out io.Writer, resp *model.GetTrendingContentResponse, offset int) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	if resp.Data.IsArtists {
		fmt.Fprintln(w, "#\tID\tARTIST\tGENRE\tCOUNTRY\tLIKED\tFOLLOWING")
		for i, a := range resp.Data.Artists {
			following := ""
			if a.IsFollowed != nil && *a.IsFollowed {
				following = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				offset+i+1, a.ID, a.Username, a.FavoriteGenre, a.Country, heart(a.IsLiked), following)
		}
	} else {
		fmt.Fprintln(w, "#\tID\tTITLE\tARTIST\tTYPE\tLIKES\tSCORE\tLIKED")
		for i, c := range resp.Data.Content {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				offset+i+1, c.ID, textutil.Truncate(c.Title, 32), c.User.Username, c.Type,
				intPtr(c.LikeCount), scorePtr(c.WeeklyTrendingScore), heart(c.IsLiked))
		}
	}
	if resp.Data.Len() == 0 {
		fmt.Fprintln(w, "\t(nothing here)")
	}
	return w.Flush()
}

func renderOpportunities(out io.Writer, opps []*invest.Opportunity) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tARTIST\tGENRE\tRISK\tFUNDED\tREMAINING\tLISTENERS")
	for _, o := range opps {
		fmt.Fprintf(w, "%s-%d\t%s\t%s\t%s\t%s%%\t$%s\t%s\n",
			o.Slug(), o.ID, o.Name, o.Genre, o.RiskLevel,
			o.FundingProgress().StringFixed(1), o.Remaining().StringFixed(0),
			textutil.FormatCount(o.MonthlyListeners))
	}
	return w.Flush()
}

func renderQuote(out io.Writer, w *invest.Wizard) {
	o := w.Opportunity()
	fmt.Fprintf(out, "%s (%s, %s)\n", o.Name, o.Genre, o.Country)
	fmt.Fprintf(out, "  funded:          %s%% of $%s\n", o.FundingProgress().StringFixed(1), o.FundingGoal.StringFixed(0))
	fmt.Fprintf(out, "  amount:          $%s\n", w.Amount().StringFixed(0))
	fmt.Fprintf(out, "  share:           %s%%\n", w.Share().String())
	fmt.Fprintf(out, "  expected payout: $%s (illustrative)\n", invest.ExpectedPayout(w.Amount()).StringFixed(0))
	fmt.Fprintf(out, "  expected return: %s, risk %s\n", o.ExpectedReturn, o.RiskLevel)
}

func renderReceipt(out io.Writer, r *invest.Receipt) {
	fmt.Fprintf(out, "Investment confirmed.\n")
	fmt.Fprintf(out, "  receipt:  %s\n", r.ID)
	fmt.Fprintf(out, "  artist:   %s\n", r.ArtistName)
	fmt.Fprintf(out, "  amount:   $%s\n", r.Amount.StringFixed(0))
	fmt.Fprintf(out, "  share:    %s%%\n", r.SharePercent.String())
	fmt.Fprintf(out, "  payout:   $%s\n", r.ExpectedPayout.StringFixed(0))
	fmt.Fprintf(out, "  at:       %s\n", r.ConfirmedAt.Format("2006-01-02 15:04:05"))
}

// renderStats prints the query engine's counters.
func renderStats(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	varz.Each("query", func(name, value string) {
		fmt.Fprintf(w, "%s\t%s\n", name, value)
	})
	return w.Flush()
}
