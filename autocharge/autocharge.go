package autocharge

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/autowaybler/waybler"
)

var log = logrus.StandardLogger()

// Session is the part of the vendor client a cycle needs.
type Session interface {
	Initialize(ctx context.Context) error
	IsVehicleConnected() bool
	IsCharging() bool
	LowestPrice(window time.Duration) *waybler.PriceListEntry
	StartCharging(ctx context.Context, priceLimit float64) (*waybler.CreateChargeSessionResponse, error)
	Disconnect()
}

// SessionFactory builds a fresh session for every cycle.
type SessionFactory func() (Session, error)

type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeNoVehicle
	OutcomeAlreadyCharging
	OutcomeNoPrice
	OutcomePriceTooHigh
	OutcomeNoStation
	OutcomeStarted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoVehicle:
		return "no vehicle"
	case OutcomeAlreadyCharging:
		return "already charging"
	case OutcomeNoPrice:
		return "no price"
	case OutcomePriceTooHigh:
		return "price too high"
	case OutcomeNoStation:
		return "no station"
	case OutcomeStarted:
		return "started"
	default:
		return "failed"
	}
}

// Service runs the charge decision once per cycle.
type Service struct {
	newSession   SessionFactory
	lookAhead    time.Duration
	maxSpotPrice float64
}

func NewService(newSession SessionFactory, lookAhead time.Duration, maxSpotPrice float64) *Service {
	return &Service{
		newSession:   newSession,
		lookAhead:    lookAhead,
		maxSpotPrice: maxSpotPrice,
	}
}

// NewWayblerService builds a Service whose sessions are real vendor clients.
func NewWayblerService(cfg *waybler.Config, opts ...waybler.Option) *Service {
	factory := func() (Session, error) {
		c, err := waybler.New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return NewService(factory, cfg.LookAhead(), cfg.MaxSpotPrice)
}

// RunCycle evaluates the charge conditions and starts a session if they are all met.
// The session is always disconnected before returning.
func (s *Service) RunCycle(ctx context.Context) (Outcome, error) {
	log.Info("Running scheduled charge...")

	session, err := s.newSession()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Disconnect()

	if err := session.Initialize(ctx); err != nil {
		return OutcomeFailed, err
	}

	if !session.IsVehicleConnected() {
		log.Info("No vehicle plugged in. Skipping.")
		return OutcomeNoVehicle, nil
	}

	if session.IsCharging() {
		log.Info("Already charging. Skipping.")
		return OutcomeAlreadyCharging, nil
	}

	lowest := session.LowestPrice(s.lookAhead)
	if lowest == nil {
		log.Infof("No price data in next %s. Skipping.", s.lookAhead)
		return OutcomeNoPrice, nil
	}

	fee := lowest.ConsumptionFee
	log.Infof("Lowest price in next %s: %v %s (at %s)", s.lookAhead, fee.Total, fee.Currency, lowest.At.Format(time.RFC3339))

	if fee.Total > s.maxSpotPrice {
		log.Infof("Lowest price %v exceeds max %v. Skipping.", fee.Total, s.maxSpotPrice)
		return OutcomePriceTooHigh, nil
	}

	// the vendor expects the limit without VAT
	result, err := session.StartCharging(ctx, fee.Value)
	if err != nil {
		return OutcomeFailed, err
	}
	if result == nil {
		log.Warn("Failed to start charging (no connected station found).")
		return OutcomeNoStation, nil
	}

	log.Infof("Charging started. Session ID: %d, price limit: %v", result.SessionID, fee.Total)
	return OutcomeStarted, nil
}

// Tick runs one cycle and reports its error. Errors never escape a tick.
func (s *Service) Tick(ctx context.Context) Outcome {
	outcome, err := s.RunCycle(ctx)
	if err != nil {
		log.Errorf("Charging failed: %v", err)
	}
	return outcome
}
