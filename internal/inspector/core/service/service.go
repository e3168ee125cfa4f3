package service

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/hwfleet/hwfleet/internal/inspector/core"
	"github.com/hwfleet/hwfleet/internal/inspector/core/dispatch"
	"github.com/hwfleet/hwfleet/internal/inspector/core/policy"
	"github.com/hwfleet/hwfleet/internal/inspector/core/view"
	"github.com/hwfleet/hwfleet/pkg/log"
)

// Config is the pass configuration.
type Config struct {
	Policy   policy.Config
	Dispatch dispatch.Config

	// Shuffle randomizes the eligible nodes before Limit is applied.
	Shuffle bool
	// Limit caps the number of nodes dispatched per pass; <= 0 means no cap.
	Limit int
}

// Service implements one reconciliation pass over the hardware fleet.
// It orchestrates the view builder, the eligibility policy and the dispatch engine.
type Service struct {
	cfg Config

	hardware core.HardwareAuthority
	notifier core.OutcomeNotifier
	store    core.ReportStore

	builder *view.Builder
	policy  *policy.Policy
	engine  *dispatch.Engine

	clock     clock.PassiveClock
	rnd       *rand.Rand
	logger    log.Logger
	newPassID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock sets the clock used for eligibility and reporting.
func WithClock(clk clock.PassiveClock) Option {
	return func(s *Service) { s.clock = clk }
}

// WithRand sets the source used to shuffle eligible nodes.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Service) { s.rnd = rnd }
}

func WithLogger(logger log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPassID sets the generator of pass identifiers.
func WithPassID(fn func() string) Option {
	return func(s *Service) { s.newPassID = fn }
}

// New creates a Service. notifier and store may be nil.
func New(
	cfg Config,
	hardware core.HardwareAuthority,
	reservation core.ReservationAuthority,
	notifier core.OutcomeNotifier,
	store core.ReportStore,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:       cfg,
		hardware:  hardware,
		notifier:  notifier,
		store:     store,
		clock:     clock.RealClock{},
		logger:    log.NewNopLogger(),
		newPassID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		seed := uint64(time.Now().UnixNano())
		s.rnd = rand.New(rand.NewPCG(seed, seed>>32))
	}

	s.policy = policy.New(cfg.Policy, s.clock)
	s.builder = view.NewBuilder(hardware, reservation, s.clock, cfg.Policy.LeaseBuffer, s.logger.WithName("view"))
	s.engine = dispatch.NewEngine(cfg.Dispatch, hardware, s.policy, s.clock, s.logger.WithName("dispatch"))
	return s
}
