/*
Package invest is the arithmetic and flow of backing an artist: funding
progress, the share an amount buys, and a three-step wizard (amount,
payment, confirmation).

Nothing here moves money.  Confirmation is a fixed processing delay and a
receipt, and nothing is persisted.
*/
package invest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/textutil"
)

var (
	MinInvestment = decimal.NewFromInt(100)
	MaxInvestment = decimal.NewFromInt(10000)
	DefaultAmount = decimal.NewFromInt(500)

	// payoutMultiplier is the illustrative return shown next to an amount.
	payoutMultiplier = decimal.RequireFromString("1.15")
	hundred          = decimal.NewFromInt(100)
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrNotFound         = errors.New("no such opportunity")
)

type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// Opportunity is an artist's funding round.
type Opportunity struct {
	ID               int
	Name             string
	Genre            string
	Country          string
	Description      string
	MonthlyListeners int64
	FundingGoal      decimal.Decimal
	CurrentFunding   decimal.Decimal
	ExpectedReturn   string
	RiskLevel        Risk
	ImageURL         string
	StreamingLinks   map[string]string
}

// FromWire converts the API form, whose amounts are decimal strings.
func FromWire(w model.Opportunity) (*Opportunity, error) {
	goal, err := decimal.NewFromString(w.FundingGoal)
	if err != nil {
		return nil, fmt.Errorf("opportunity %d: bad funding goal %q: %w", w.ID, w.FundingGoal, err)
	}
	current, err := decimal.NewFromString(w.CurrentFunding)
	if err != nil {
		return nil, fmt.Errorf("opportunity %d: bad current funding %q: %w", w.ID, w.CurrentFunding, err)
	}
	if goal.IsNegative() || current.IsNegative() {
		return nil, fmt.Errorf("opportunity %d: negative funding", w.ID)
	}
	risk := Risk(w.RiskLevel)
	switch risk {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return nil, fmt.Errorf("opportunity %d: unknown risk level %q", w.ID, w.RiskLevel)
	}
	return &Opportunity{
		ID:               w.ID,
		Name:             w.Name,
		Genre:            w.Genre,
		Country:          w.Country,
		Description:      w.Description,
		MonthlyListeners: w.MonthlyListeners,
		FundingGoal:      goal,
		CurrentFunding:   current,
		ExpectedReturn:   w.ExpectedReturn,
		RiskLevel:        risk,
		ImageURL:         w.ImageURL,
		StreamingLinks:   w.StreamingLinks,
	}, nil
}

// FromWireList converts a whole listing, failing on the first bad entry.
func FromWireList(ws []model.Opportunity) ([]*Opportunity, error) {
	opps := make([]*Opportunity, 0, len(ws))
	for _, w := range ws {
		o, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		opps = append(opps, o)
	}
	return opps, nil
}

func (o *Opportunity) Wire() model.Opportunity {
	return model.Opportunity{
		ID:               o.ID,
		Name:             o.Name,
		Slug:             o.Slug(),
		Genre:            o.Genre,
		Country:          o.Country,
		Description:      o.Description,
		MonthlyListeners: o.MonthlyListeners,
		FundingGoal:      o.FundingGoal.String(),
		CurrentFunding:   o.CurrentFunding.String(),
		ExpectedReturn:   o.ExpectedReturn,
		RiskLevel:        string(o.RiskLevel),
		ImageURL:         o.ImageURL,
		StreamingLinks:   o.StreamingLinks,
	}
}

func (o *Opportunity) Slug() string {
	return textutil.Slugify(o.Name)
}

// FundingProgress is current funding as a percentage of the goal.  It may
// exceed 100.
func (o *Opportunity) FundingProgress() decimal.Decimal {
	if o.FundingGoal.IsZero() {
		return decimal.Zero
	}
	return o.CurrentFunding.Div(o.FundingGoal).Mul(hundred)
}

// Remaining is what is left to raise, never negative.
func (o *Opportunity) Remaining() decimal.Decimal {
	r := o.FundingGoal.Sub(o.CurrentFunding)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// SharePercentage is the percentage of the goal that amount represents,
// rounded to three places.
func SharePercentage(amount, goal decimal.Decimal) decimal.Decimal {
	if goal.IsZero() {
		return decimal.Zero
	}
	return amount.Div(goal).Mul(hundred).Round(3)
}

// ExpectedPayout is the illustrative payout for amount, in whole units.
func ExpectedPayout(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(payoutMultiplier).Round(0)
}

// ClampAmount reads an amount the way the amount field does: whole units,
// unreadable input becomes the minimum, and the result is held to
// [MinInvestment, MaxInvestment].
func ClampAmount(input string) decimal.Decimal {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n == 0 {
		return MinInvestment
	}
	d := decimal.NewFromInt(int64(n))
	switch {
	case d.LessThan(MinInvestment):
		return MinInvestment
	case d.GreaterThan(MaxInvestment):
		return MaxInvestment
	}
	return d
}

// ValidateAmount checks an amount before payment.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.LessThan(MinInvestment) || amount.GreaterThan(MaxInvestment) {
		return fmt.Errorf("%w: %s is not between %s and %s", ErrAmountOutOfRange, amount, MinInvestment, MaxInvestment)
	}
	return nil
}

// FindBySlug finds an opportunity by a slug ending in its id ("artist-1"),
// or failing that by its name slug ("sophia-martinez").  Ids win across the
// whole list, so "band-3" is opportunity 3 even if an earlier one is named
// "Band 3".
func FindBySlug(opps []*Opportunity, slug string) (*Opportunity, error) {
	id := textutil.LastDashField(slug)
	for _, o := range opps {
		if strconv.Itoa(o.ID) == id {
			return o, nil
		}
	}
	for _, o := range opps {
		if o.Slug() == slug {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
}
