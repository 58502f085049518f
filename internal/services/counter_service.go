package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/washline/api/internal/repositories"
)

var (
	// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrBookingNumbersExhausted indicates the four digit booking sequence is used up.
	ErrBookingNumbersExhausted = errors.New("counter: booking numbers exhausted")
)

const (
	bookingCounterID  = "bookings"
	bookingNumberMax  = 9999
	bookingNumberSize = 4
)

var bookingNumberPattern = regexp.MustCompile(`^\d{4}$`)

// CounterServiceDeps bundles collaborators required to construct a counter service instance.
type CounterServiceDeps struct {
	Repository repositories.CounterRepository
	Orders     repositories.OrderRepository
}

type counterService struct {
	repo   repositories.CounterRepository
	orders repositories.OrderRepository

	configMu   sync.Mutex
	configured bool
}

// NewCounterService constructs the allocator for sequential booking numbers.
func NewCounterService(deps CounterServiceDeps) (CounterService, error) {
	if deps.Repository == nil {
		return nil, errors.New("counter service: repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("counter service: order repository is required")
	}
	return &counterService{
		repo:   deps.Repository,
		orders: deps.Orders,
	}, nil
}

// NextBookingNumber allocates the next zero padded booking number. Numbers are
// strictly increasing and never reused, even for canceled orders.
func (s *counterService) NextBookingNumber(ctx context.Context) (string, error) {
	if err := s.ensureConfigured(ctx); err != nil {
		return "", err
	}

	value, err := s.repo.Next(ctx, bookingCounterID, 1)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			switch counterErr.Code {
			case repositories.CounterErrorInvalidInput:
				return "", fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
			case repositories.CounterErrorExhausted:
				return "", fmt.Errorf("%w: %s", ErrBookingNumbersExhausted, counterErr.Message)
			}
		}
		return "", err
	}
	if value > bookingNumberMax {
		return "", fmt.Errorf("%w: sequence reached %d", ErrBookingNumbersExhausted, value)
	}

	return fmt.Sprintf("%0*d", bookingNumberSize, value), nil
}

// SeedFromExisting raises the counter to the highest four digit order number
// already stored, so allocation continues after data imported outside the
// counter. Non numeric document IDs are ignored.
func (s *counterService) SeedFromExisting(ctx context.Context) error {
	numbers, err := s.orders.ListNumbers(ctx)
	if err != nil {
		return fmt.Errorf("seed booking counter: %w", err)
	}

	var highest int64
	for _, number := range numbers {
		if !bookingNumberPattern.MatchString(number) {
			continue
		}
		value, parseErr := strconv.ParseInt(number, 10, 64)
		if parseErr != nil {
			continue
		}
		if value > highest {
			highest = value
		}
	}

	maxValue := int64(bookingNumberMax)
	cfg := repositories.CounterConfig{
		Step:         1,
		MaxValue:     &maxValue,
		InitialValue: &highest,
	}
	if err := s.repo.Configure(ctx, bookingCounterID, cfg); err != nil {
		return fmt.Errorf("seed booking counter: %w", err)
	}

	s.configMu.Lock()
	s.configured = true
	s.configMu.Unlock()
	return nil
}

func (s *counterService) ensureConfigured(ctx context.Context) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	if s.configured {
		return nil
	}

	maxValue := int64(bookingNumberMax)
	cfg := repositories.CounterConfig{Step: 1, MaxValue: &maxValue}
	if err := s.repo.Configure(ctx, bookingCounterID, cfg); err != nil {
		return err
	}
	s.configured = true
	return nil
}
