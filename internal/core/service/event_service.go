package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eventbooker/event-booker/internal/core/domain"
	"github.com/eventbooker/event-booker/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// compensateTimeout bounds writes that undo or finish a partial booking
	// change after the request context is gone.
	compensateTimeout = 10 * time.Second
)

type eventService struct {
	events   ports.EventRepository
	bookings ports.BookingRepository
	idem     ports.IdempotencyStore
	notifier ports.BookingNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewEventService returns an EventService implementation. idem and notifier
// may be nil.
func NewEventService(
	events ports.EventRepository,
	bookings ports.BookingRepository,
	idem ports.IdempotencyStore,
	notifier ports.BookingNotifier,
	log zerolog.Logger,
) ports.EventService {
	return &eventService{
		events:   events,
		bookings: bookings,
		idem:     idem,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *eventService) Create(ctx context.Context, organizerID string, draft domain.EventDraft) (*domain.Event, error) {
	ev, err := domain.NewEvent(draft, organizerID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	created, err := s.events.Create(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.Info().Str("event_id", created.ID).Str("organizer", organizerID).Int("capacity", created.Capacity).Msg("event created")
	return created, nil
}

func (s *eventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.FindByID(ctx, id)
}

func (s *eventService) List(ctx context.Context, in ports.ListEventsInput) (*ports.ListEventsResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := ports.ListEventsFilter{
		OrganizerID: in.OrganizerID,
		ActiveOnly:  true,
		Page:        page,
		Limit:       limit,
	}
	if in.Category != "" {
		c := domain.Category(in.Category)
		if !c.Valid() {
			return nil, &domain.ValidationError{Violations: []domain.Violation{{Field: "category", Message: "must be one of: concerts sports theater education other"}}}
		}
		filter.Category = c
	}
	if in.Upcoming {
		filter.UpcomingAt = s.now().UTC()
	}

	items, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListEventsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Update validates changes against the current record, then writes them. The
// store re-checks capacity against booked seats at write time.
func (s *eventService) Update(ctx context.Context, id string, changes domain.EventChanges) (*domain.Event, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := changes.Apply(ev, s.now().UTC()); err != nil {
		return nil, err
	}
	updated, err := s.events.Update(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) Deactivate(ctx context.Context, id string) error {
	if err := s.events.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("deactivate event: %w", err)
	}
	s.log.Info().Str("event_id", id).Msg("event deactivated")
	return nil
}

// Book reserves seats atomically and records the booking. If the booking
// cannot be stored the seats are released again. A request carrying an
// Idempotency-Key claims the key before any seats move.
func (s *eventService) Book(ctx context.Context, in ports.BookInput) (*ports.BookResult, error) {
	if err := domain.ValidateSeatCount(in.Seats); err != nil {
		return nil, err
	}

	if in.IdempotencyKey == "" || s.idem == nil {
		return s.book(ctx, in)
	}

	bookingID, claimed, err := s.idem.Claim(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", in.UserID).Msg("idempotency claim failed, processing anyway")
		return s.book(ctx, in)
	}
	if !claimed {
		return s.replay(ctx, in, bookingID)
	}

	res, err := s.book(ctx, in)

	dctx, cancel := detached(ctx)
	defer cancel()
	if err != nil {
		if abErr := s.idem.Abandon(dctx, in.UserID, in.IdempotencyKey); abErr != nil {
			s.log.Warn().Err(abErr).Str("user_id", in.UserID).Msg("failed to free idempotency key")
		}
		return nil, err
	}
	if cErr := s.idem.Complete(dctx, in.UserID, in.IdempotencyKey, res.Booking.ID); cErr != nil {
		s.log.Warn().Err(cErr).Str("booking_id", res.Booking.ID).Msg("failed to record idempotency key")
	}
	return res, nil
}

func (s *eventService) book(ctx context.Context, in ports.BookInput) (*ports.BookResult, error) {
	current, err := s.events.FindByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !current.IsActive || !current.Date.After(s.now()) {
		return nil, domain.ErrEventInactive
	}
	if in.Seats > current.AvailableSeats() {
		return nil, fmt.Errorf("%w: requested %d seats, %d available", domain.ErrCapacityExceeded, in.Seats, current.AvailableSeats())
	}

	ev, err := s.events.ReserveSeats(ctx, in.EventID, in.Seats)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		EventID:   in.EventID,
		UserID:    in.UserID,
		Seats:     in.Seats,
		Status:    domain.BookingConfirmed,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.bookings.Create(ctx, booking)
	if err != nil {
		dctx, cancel := detached(ctx)
		defer cancel()
		if _, relErr := s.events.ReleaseSeats(dctx, in.EventID, "hold:"+uuid.NewString(), in.Seats); relErr != nil {
			s.log.Error().Err(relErr).Str("event_id", in.EventID).Int("seats", in.Seats).Msg("failed to release seats after booking write failure")
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.notify(created)
	s.log.Info().
		Str("booking_id", created.ID).
		Str("event_id", in.EventID).
		Int("seats", in.Seats).
		Int("available", ev.AvailableSeats()).
		Msg("seats booked")

	return &ports.BookResult{Booking: created, Event: ev}, nil
}

// replay returns the earlier result for a repeated Idempotency-Key. An empty
// bookingID means the first request has not finished yet.
func (s *eventService) replay(ctx context.Context, in ports.BookInput, bookingID string) (*ports.BookResult, error) {
	if bookingID == "" {
		return nil, domain.ErrKeyInFlight
	}
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.EventID != in.EventID {
		return nil, domain.ErrKeyReused
	}
	ev, err := s.events.FindByID(ctx, booking.EventID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("booking_id", bookingID).Msg("idempotent replay")
	return &ports.BookResult{Booking: booking, Event: ev, Replayed: true}, nil
}

func (s *eventService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

func (s *eventService) ListBookings(ctx context.Context, userID string) ([]*domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// CancelBooking flips the booking to cancelled and gives its seats back. A
// cancelled booking whose seats were never returned is finished on retry.
func (s *eventService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.bookings.MarkCancelled(ctx, id, s.now().UTC())
	if errors.Is(err, domain.ErrBookingCancelled) {
		booking, err = s.bookings.FindByID(ctx, id)
		if err == nil && booking.SeatsReleased {
			return nil, domain.ErrBookingCancelled
		}
	}
	if err != nil {
		return nil, err
	}

	if err := s.releaseBooking(ctx, booking); err != nil {
		return nil, err
	}
	s.notify(booking)
	s.log.Info().Str("booking_id", id).Str("event_id", booking.EventID).Int("seats", booking.Seats).Msg("booking cancelled")
	return booking, nil
}

// releaseBooking returns a cancelled booking's seats. The release is keyed by
// booking id, so running it again after a partial failure cannot free the
// seats twice.
func (s *eventService) releaseBooking(ctx context.Context, b *domain.Booking) error {
	dctx, cancel := detached(ctx)
	defer cancel()

	_, err := s.events.ReleaseSeats(dctx, b.EventID, "booking:"+b.ID, b.Seats)
	if err != nil && !errors.Is(err, domain.ErrEventNotFound) {
		return fmt.Errorf("release seats: %w", err)
	}
	if err := s.bookings.MarkSeatsReleased(dctx, b.ID); err != nil {
		s.log.Warn().Err(err).Str("booking_id", b.ID).Msg("failed to mark seats released")
	}
	b.SeatsReleased = true
	return nil
}

func (s *eventService) DeactivatePastEvents(ctx context.Context) (int64, error) {
	n, err := s.events.DeactivatePast(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate past events: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("past events deactivated")
	}
	return n, nil
}

func (s *eventService) notify(b *domain.Booking) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(domain.BookingNotice{
		ID:         uuid.NewString(),
		BookingID:  b.ID,
		EventID:    b.EventID,
		UserID:     b.UserID,
		Seats:      b.Seats,
		Status:     b.Status,
		OccurredAt: s.now().UTC(),
	})
}

// detached keeps ctx values but not its deadline or cancellation.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
}
