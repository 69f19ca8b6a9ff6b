package invest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/dep"
)

// ProcessingDelay is how long confirming an investment takes.
const ProcessingDelay = 2 * time.Second

var (
	ErrWrongStep  = errors.New("not allowed at this step")
	ErrProcessing = errors.New("already processing")
)

type Step int

const (
	StepAmount Step = iota + 1
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepAmount:
		return "amount"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

type Receipt struct {
	ID             uuid.UUID
	OpportunityID  int
	ArtistName     string
	Amount         decimal.Decimal
	SharePercent   decimal.Decimal
	ExpectedPayout decimal.Decimal
	ConfirmedAt    time.Time
}

// Wizard walks one investment from choosing an amount to confirmation.  It
// is safe for concurrent use, but only one Confirm runs at a time.
type Wizard struct {
	clock clockwork.Clock
	opp   *Opportunity

	mu         sync.Mutex
	step       Step
	amount     decimal.Decimal
	processing bool
	receipt    *Receipt
}

func NewWizard(clock clockwork.Clock, opp *Opportunity) *Wizard {
	return &Wizard{
		clock:  dep.Required(clock),
		opp:    dep.Required(opp),
		step:   StepAmount,
		amount: DefaultAmount,
	}
}

func (w *Wizard) Opportunity() *Opportunity {
	return w.opp
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Amount() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.amount
}

// Share is the percentage of the goal the current amount buys.
func (w *Wizard) Share() decimal.Decimal {
	return SharePercentage(w.Amount(), w.opp.FundingGoal)
}

// SetAmount changes the amount.  Only allowed while choosing it; the amount
// is checked by ProceedToPayment, not here.
func (w *Wizard) SetAmount(amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepAmount {
		return fmt.Errorf("can't change amount: %w (%v)", ErrWrongStep, w.step)
	}
	w.amount = amount
	return nil
}

func (w *Wizard) ProceedToPayment() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepAmount {
		return fmt.Errorf("can't proceed to payment: %w (%v)", ErrWrongStep, w.step)
	}
	if err := ValidateAmount(w.amount); err != nil {
		return err
	}
	w.step = StepPayment
	return nil
}

// Back returns from payment to choosing the amount.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepPayment || w.processing {
		return fmt.Errorf("can't go back: %w (%v)", ErrWrongStep, w.step)
	}
	w.step = StepAmount
	return nil
}

// Confirm processes the investment.  If ctx ends first the wizard stays at
// the payment step and can be confirmed again.
func (w *Wizard) Confirm(ctx context.Context) (*Receipt, error) {
	w.mu.Lock()
	if w.step != StepPayment {
		step := w.step
		w.mu.Unlock()
		return nil, fmt.Errorf("can't confirm: %w (%v)", ErrWrongStep, step)
	}
	if w.processing {
		w.mu.Unlock()
		return nil, ErrProcessing
	}
	w.processing = true
	amount := w.amount
	w.mu.Unlock()

	timer := w.clock.NewTimer(ProcessingDelay)
	defer timer.Stop()

	var err error
	select {
	case <-timer.Chan():
	case <-ctx.Done():
		err = ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.processing = false
	if err != nil {
		log.WithFields(log.Fields{"artist": w.opp.Name, "error": err}).Info("investment abandoned")
		return nil, fmt.Errorf("investment not processed: %w", err)
	}

	w.receipt = &Receipt{
		ID:             uuid.New(),
		OpportunityID:  w.opp.ID,
		ArtistName:     w.opp.Name,
		Amount:         amount,
		SharePercent:   SharePercentage(amount, w.opp.FundingGoal),
		ExpectedPayout: ExpectedPayout(amount),
		ConfirmedAt:    w.clock.Now(),
	}
	w.step = StepConfirmation
	log.WithFields(log.Fields{"artist": w.opp.Name, "amount": amount.String(), "receipt": w.receipt.ID}).Info("investment confirmed")
	return w.receipt, nil
}

// Receipt is the confirmation, once there is one.
func (w *Wizard) Receipt() (*Receipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt, w.receipt != nil
}
