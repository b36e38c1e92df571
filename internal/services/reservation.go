package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"studiorent/internal/database"
	"studiorent/internal/models"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrSpamDetected    = errors.New("message rejected as spam")
	ErrMissingDuration = errors.New("either a date range or a day count is required")
	ErrUnavailable     = errors.New("equipment unavailable for the requested dates")
)

// UnavailableError lists the cart rows that cannot be rented over the range.
type UnavailableError struct {
	IDs []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnavailable, strings.Join(e.IDs, ", "))
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

const tracerName = "studiorent/services"

// Notifier delivers reservation mails.
type Notifier interface {
	SendReservationConfirmation(r *models.Reservation) error
	SendStudioNotification(r *models.Reservation) error
}

// ReservationService turns a session cart into a stored reservation.
type ReservationService struct {
	db           database.DBInterface
	carts        *CartService
	availability *AvailabilityService
	notifier     Notifier
	spam         *SpamDetector
	security     *SecurityLogger
	logger       *zap.Logger

	wg sync.WaitGroup
}

// NewReservationService wires reservation submission to the cart, calendar and mailer.
func NewReservationService(db database.DBInterface, carts *CartService, availability *AvailabilityService,
	notifier Notifier, security *SecurityLogger, logger *zap.Logger) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if security == nil {
		security = NewSecurityLogger(logger)
	}
	return &ReservationService{
		db:           db,
		carts:        carts,
		availability: availability,
		notifier:     notifier,
		spam:         NewSpamDetector(),
		security:     security,
		logger:       logger,
	}
}

func resolveDuration(form models.ReservationForm) (*models.DateRange, int, error) {
	if form.From != "" || form.To != "" {
		r, err := models.ParseDateRange(form.From, form.To)
		if err != nil {
			return nil, 0, err
		}
		if err := checkRange(r); err != nil {
			return nil, 0, err
		}
		return &r, r.Days(), nil
	}
	if form.Days >= 1 {
		return nil, form.Days, nil
	}
	return nil, 0, ErrMissingDuration
}

// Submit validates the form, checks availability of every cart row, stores the
// reservation and takes the reserved rows out of the cart. The cart is
// untouched on any error.
func (rs *ReservationService) Submit(ctx context.Context, sessionID string, form models.ReservationForm, clientIP string) (r *models.Reservation, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ReservationService.Submit")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("reservation.number", r.ReservationNumber))
		}
		span.End()
	}()

	for _, text := range []string{form.Notes, form.Company, form.CustomerName} {
		if rs.spam.IsSpam(text) {
			rs.security.LogSecurityEvent("SPAM_RESERVATION", "session "+sessionID, clientIP)
			return nil, ErrSpamDetected
		}
	}

	dateRange, days, err := resolveDuration(form)
	if err != nil {
		return nil, err
	}

	cart := rs.carts.GetCart(ctx, sessionID)
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	span.SetAttributes(attribute.Int("cart.rows", len(items)), attribute.Int("reservation.days", days))

	if dateRange != nil {
		var blocked []string
		for _, item := range items {
			ok, err := rs.availability.IsRangeAvailable(item.ID, *dateRange)
			if err != nil {
				return nil, err
			}
			if !ok {
				blocked = append(blocked, item.ID)
			}
		}
		if len(blocked) > 0 {
			return nil, &UnavailableError{IDs: blocked}
		}
	}

	quote := BuildQuote(items, days)
	reservation := &models.Reservation{
		SessionID:    sessionID,
		CustomerName: strings.TrimSpace(form.CustomerName),
		Email:        strings.TrimSpace(form.Email),
		Phone:        strings.TrimSpace(form.Phone),
		Company:      strings.TrimSpace(form.Company),
		Notes:        strings.TrimSpace(form.Notes),
		Range:        dateRange,
		Days:         days,
		Items:        items,
		Subtotal:     quote.Subtotal,
	}
	if err := rs.db.SaveReservation(reservation); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}

	cart.Release(items)
	rs.logger.Info("ReservationService.Submit - reservation stored",
		zap.String("reservation", reservation.ReservationNumber),
		zap.String("session", sessionID),
		zap.Int("items", quote.TotalItems),
		zap.String("subtotal", quote.Subtotal.String()))

	rs.notify(reservation)
	return reservation, nil
}

func (rs *ReservationService) notify(r *models.Reservation) {
	if rs.notifier == nil {
		return
	}
	snapshot := *r
	rs.wg.Add(2)
	go func() {
		defer rs.wg.Done()
		if err := rs.notifier.SendReservationConfirmation(&snapshot); err != nil {
			rs.logger.Warn("confirmation mail failed", zap.String("reservation", snapshot.ReservationNumber), zap.Error(err))
		}
	}()
	go func() {
		defer rs.wg.Done()
		if err := rs.notifier.SendStudioNotification(&snapshot); err != nil {
			rs.logger.Warn("studio mail failed", zap.String("reservation", snapshot.ReservationNumber), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight notification mails finish.
func (rs *ReservationService) Wait() {
	rs.wg.Wait()
}

// Get returns the reservation with the given number or database.ErrNotFound.
func (rs *ReservationService) Get(number string) (*models.Reservation, error) {
	return rs.db.GetReservationByNumber(number)
}

// List returns every reservation, newest first.
func (rs *ReservationService) List() ([]models.Reservation, error) {
	return rs.db.GetAllReservations()
}

// ListForSession returns the reservations submitted from sessionID.
func (rs *ReservationService) ListForSession(sessionID string) ([]models.Reservation, error) {
	return rs.db.GetReservationsBySession(sessionID)
}

// UpdateStatus is the admin transition; confirming books the calendar.
func (rs *ReservationService) UpdateStatus(number string, status models.ReservationStatus, adminNotes string) (*models.Reservation, error) {
	r, err := rs.db.UpdateReservationStatus(number, status, adminNotes)
	if err != nil {
		return nil, err
	}
	rs.logger.Info("ReservationService.UpdateStatus",
		zap.String("reservation", number),
		zap.String("status", string(status)))
	return r, nil
}
