package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"studiorent/internal/models"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("database: record not found")

// ErrCalendarConflict is returned when confirming a reservation whose days are already taken.
var ErrCalendarConflict = errors.New("database: calendar conflict")

// dbData is the whole on-disk document.
type dbData struct {
	Equipment    []models.Equipment         `json:"equipment"`
	Availability []models.AvailabilityEntry `json:"availability"`
	Reservations []models.Reservation       `json:"reservations"`
}

// JSONDatabase keeps the catalog, availability calendar and reservations in a
// single JSON file that is rewritten on every change.
type JSONDatabase struct {
	mu       sync.RWMutex
	data     dbData
	filePath string
	logger   *zap.Logger
}

// NewDatabase opens the document at filePath, creating it when missing.
func NewDatabase(filePath string, logger *zap.Logger) (*JSONDatabase, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &JSONDatabase{
		filePath: filePath,
		logger:   logger,
	}
	if err := db.loadData(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *JSONDatabase) resetData() {
	db.data.Equipment = []models.Equipment{}
	db.data.Availability = []models.AvailabilityEntry{}
	db.data.Reservations = []models.Reservation{}
}

func (db *JSONDatabase) loadData() error {
	fileData, err := os.ReadFile(db.filePath)
	if errors.Is(err, os.ErrNotExist) {
		db.resetData()
		return db.saveData()
	}
	if err != nil {
		return err
	}
	if len(fileData) == 0 {
		db.resetData()
		return nil
	}
	if err := json.Unmarshal(fileData, &db.data); err != nil {
		return fmt.Errorf("decode %s: %w", db.filePath, err)
	}
	if db.data.Equipment == nil {
		db.data.Equipment = []models.Equipment{}
	}
	if db.data.Availability == nil {
		db.data.Availability = []models.AvailabilityEntry{}
	}
	if db.data.Reservations == nil {
		db.data.Reservations = []models.Reservation{}
	}
	return nil
}

func (db *JSONDatabase) saveData() error {
	data, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(db.filePath, data, 0644)
}

// --- Catalog seed ---

type seedEquipment struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Brand         string `yaml:"brand"`
	Category      string `yaml:"category"`
	Description   string `yaml:"description"`
	PricePerDay   string `yaml:"price_per_day"`
	PricePerWeek  string `yaml:"price_per_week"`
	StockQuantity *int   `yaml:"stock_quantity"`
	Status        string `yaml:"status"`
	ImageURL      string `yaml:"image_url"`
}

type catalogSeed struct {
	Equipment []seedEquipment `yaml:"equipment"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(raw []byte) ([]models.Equipment, error) {
	var seed catalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	out := make([]models.Equipment, 0, len(seed.Equipment))
	for _, s := range seed.Equipment {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("catalog entry %q: id and name are required", s.ID)
		}
		day, err := decimal.NewFromString(s.PricePerDay)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: price_per_day: %w", s.ID, err)
		}
		e := models.Equipment{
			ID:            s.ID,
			Name:          s.Name,
			Brand:         s.Brand,
			Category:      s.Category,
			Description:   s.Description,
			PricePerDay:   day,
			StockQuantity: s.StockQuantity,
			Status:        models.EquipmentStatus(s.Status),
			ImageURL:      s.ImageURL,
		}
		if e.Status == "" {
			e.Status = models.EquipmentAvailable
		}
		if s.PricePerWeek != "" {
			week, err := decimal.NewFromString(s.PricePerWeek)
			if err != nil {
				return nil, fmt.Errorf("catalog entry %q: price_per_week: %w", s.ID, err)
			}
			e.PricePerWeek = &week
		}
		out = append(out, e)
	}
	return out, nil
}

// SeedCatalog loads the YAML catalog at path into an empty database. A
// database that already has equipment is left alone.
func (db *JSONDatabase) SeedCatalog(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	items, err := ParseCatalog(raw)
	if err != nil {
		return 0, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.data.Equipment) > 0 {
		return 0, nil
	}
	now := time.Now()
	for i := range items {
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}
	db.data.Equipment = append(db.data.Equipment, items...)
	db.logger.Info("catalog seeded", zap.String("path", path), zap.Int("equipment", len(items)))
	return len(items), db.saveData()
}

// --- Equipment ---

// GetAllEquipment returns the catalog sorted by category, then name.
func (db *JSONDatabase) GetAllEquipment() ([]models.Equipment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	equipment := make([]models.Equipment, len(db.data.Equipment))
	copy(equipment, db.data.Equipment)
	sort.SliceStable(equipment, func(i, j int) bool {
		if equipment[i].Category != equipment[j].Category {
			return equipment[i].Category < equipment[j].Category
		}
		return equipment[i].Name < equipment[j].Name
	})
	return equipment, nil
}

// GetEquipmentByID returns a copy of the entry or ErrNotFound.
func (db *JSONDatabase) GetEquipmentByID(id string) (*models.Equipment, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, e := range db.data.Equipment {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

// UpsertEquipment replaces the record with the same id or appends a new one.
func (db *JSONDatabase) UpsertEquipment(equipment *models.Equipment) error {
	if equipment.ID == "" {
		return errors.New("equipment id is required")
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()
	equipment.UpdatedAt = now
	for i, e := range db.data.Equipment {
		if e.ID == equipment.ID {
			equipment.CreatedAt = e.CreatedAt
			db.data.Equipment[i] = *equipment
			return db.saveData()
		}
	}
	equipment.CreatedAt = now
	db.data.Equipment = append(db.data.Equipment, *equipment)
	return db.saveData()
}

// DeleteEquipment removes the entry or returns ErrNotFound.
func (db *JSONDatabase) DeleteEquipment(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, e := range db.data.Equipment {
		if e.ID == id {
			db.data.Equipment = append(db.data.Equipment[:i], db.data.Equipment[i+1:]...)
			return db.saveData()
		}
	}
	return ErrNotFound
}

// --- Availability ---

// setDayLocked writes one calendar cell. Available days carry no entry.
func (db *JSONDatabase) setDayLocked(resourceID, date string, status models.AvailabilityStatus, now time.Time) {
	for i, a := range db.data.Availability {
		if a.ResourceID == resourceID && a.Date == date {
			if status == models.StatusAvailable {
				db.data.Availability = append(db.data.Availability[:i], db.data.Availability[i+1:]...)
				return
			}
			db.data.Availability[i].Status = status
			db.data.Availability[i].UpdatedAt = now
			return
		}
	}
	if status == models.StatusAvailable {
		return
	}
	db.data.Availability = append(db.data.Availability, models.AvailabilityEntry{
		ResourceID: resourceID,
		Date:       date,
		Status:     status,
		UpdatedAt:  now,
	})
}

// SetAvailability sets the status of every day in r for resourceID.
func (db *JSONDatabase) SetAvailability(resourceID string, r models.DateRange, status models.AvailabilityStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown availability status %q", status)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now()
	for _, d := range r.Dates() {
		db.setDayLocked(resourceID, d, status, now)
	}
	return db.saveData()
}

// GetAvailability reports a status for every day in r, defaulting to available.
func (db *JSONDatabase) GetAvailability(resourceID string, r models.DateRange) ([]models.DayStatus, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored := make(map[string]models.AvailabilityStatus)
	for _, a := range db.data.Availability {
		if a.ResourceID == resourceID {
			stored[a.Date] = a.Status
		}
	}
	dates := r.Dates()
	out := make([]models.DayStatus, 0, len(dates))
	for _, d := range dates {
		status, ok := stored[d]
		if !ok {
			status = models.StatusAvailable
		}
		out = append(out, models.DayStatus{Date: d, Status: status})
	}
	return out, nil
}

// --- Reservations ---

func generateReservationNumber() string {
	return "RSV-" + strings.ToUpper(uuid.New().String()[:8])
}

// SaveReservation inserts a new reservation or replaces one with the same ID.
func (db *JSONDatabase) SaveReservation(reservation *models.Reservation) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if reservation.ID == 0 {
		maxID := 0
		for _, r := range db.data.Reservations {
			if r.ID > maxID {
				maxID = r.ID
			}
		}
		reservation.ID = maxID + 1
		reservation.CreatedAt = time.Now()
		if reservation.Status == "" {
			reservation.Status = models.ReservationPending
		}
		if reservation.ReservationNumber == "" {
			reservation.ReservationNumber = generateReservationNumber()
		}
	}
	reservation.UpdatedAt = time.Now()

	for i, r := range db.data.Reservations {
		if r.ID == reservation.ID {
			db.data.Reservations[i] = *reservation
			return db.saveData()
		}
	}
	db.data.Reservations = append(db.data.Reservations, *reservation)
	return db.saveData()
}

// GetReservationByNumber returns a copy of the reservation or ErrNotFound.
func (db *JSONDatabase) GetReservationByNumber(number string) (*models.Reservation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, r := range db.data.Reservations {
		if r.ReservationNumber == number {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// GetReservationsBySession returns a session's reservations, newest first.
func (db *JSONDatabase) GetReservationsBySession(sessionID string) ([]models.Reservation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []models.Reservation
	for _, r := range db.data.Reservations {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetAllReservations returns every reservation, newest first.
func (db *JSONDatabase) GetAllReservations() ([]models.Reservation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]models.Reservation, len(db.data.Reservations))
	copy(out, db.data.Reservations)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateReservationStatus moves a reservation to status. Confirming books the
// reserved days of every item and fails with ErrCalendarConflict when any of
// them is already taken. Cancelling a confirmed reservation frees only the days
// it booked that no other confirmed reservation still covers.
func (db *JSONDatabase) UpdateReservationStatus(number string, status models.ReservationStatus, adminNotes string) (*models.Reservation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, r := range db.data.Reservations {
		if r.ReservationNumber != number {
			continue
		}
		old := r.Status
		confirming := old != models.ReservationConfirmed && status == models.ReservationConfirmed
		releasing := old == models.ReservationConfirmed && status != models.ReservationConfirmed

		if confirming {
			if err := db.checkFreeLocked(&r); err != nil {
				return nil, err
			}
		}

		now := time.Now()
		db.data.Reservations[i].Status = status
		db.data.Reservations[i].UpdatedAt = now
		if adminNotes != "" {
			db.data.Reservations[i].AdminNotes = adminNotes
		}

		switch {
		case confirming:
			db.bookReservationLocked(&r, now)
		case releasing:
			db.releaseReservationLocked(&r, now)
		}

		updated := db.data.Reservations[i]
		return &updated, db.saveData()
	}
	return nil, ErrNotFound
}

func (db *JSONDatabase) dayStatusLocked(resourceID, date string) models.AvailabilityStatus {
	for _, a := range db.data.Availability {
		if a.ResourceID == resourceID && a.Date == date {
			return a.Status
		}
	}
	return models.StatusAvailable
}

// checkFreeLocked fails when any reserved day is not available.
func (db *JSONDatabase) checkFreeLocked(r *models.Reservation) error {
	if r.Range == nil {
		return nil
	}
	for _, item := range r.Items {
		for _, d := range r.Range.Dates() {
			if st := db.dayStatusLocked(item.ID, d); st != models.StatusAvailable {
				return fmt.Errorf("%w: %s on %s is %s", ErrCalendarConflict, item.ID, d, st)
			}
		}
	}
	return nil
}

// coveredLocked reports whether a confirmed reservation other than number books resourceID on date.
func (db *JSONDatabase) coveredLocked(number, resourceID, date string) bool {
	for _, other := range db.data.Reservations {
		if other.ReservationNumber == number || other.Status != models.ReservationConfirmed || other.Range == nil {
			continue
		}
		if date < models.FormatDate(other.Range.From) || date > models.FormatDate(other.Range.To) {
			continue
		}
		for _, item := range other.Items {
			if item.ID == resourceID {
				return true
			}
		}
	}
	return false
}

func (db *JSONDatabase) bookReservationLocked(r *models.Reservation, now time.Time) {
	if r.Range == nil {
		return
	}
	for _, item := range r.Items {
		for _, d := range r.Range.Dates() {
			db.setDayLocked(item.ID, d, models.StatusBooked, now)
		}
	}
	db.logger.Info("reservation days booked",
		zap.String("reservation", r.ReservationNumber),
		zap.Int("items", len(r.Items)))
}

func (db *JSONDatabase) releaseReservationLocked(r *models.Reservation, now time.Time) {
	if r.Range == nil {
		return
	}
	freed := 0
	for _, item := range r.Items {
		for _, d := range r.Range.Dates() {
			if db.dayStatusLocked(item.ID, d) != models.StatusBooked {
				continue
			}
			if db.coveredLocked(r.ReservationNumber, item.ID, d) {
				continue
			}
			db.setDayLocked(item.ID, d, models.StatusAvailable, now)
			freed++
		}
	}
	db.logger.Info("reservation days released",
		zap.String("reservation", r.ReservationNumber),
		zap.Int("days_freed", freed))
}

// DBInterface is the storage surface the services depend on.
type DBInterface interface {
	// Equipment methods
	GetAllEquipment() ([]models.Equipment, error)
	GetEquipmentByID(id string) (*models.Equipment, error)
	UpsertEquipment(equipment *models.Equipment) error
	DeleteEquipment(id string) error
	// Availability methods
	SetAvailability(resourceID string, r models.DateRange, status models.AvailabilityStatus) error
	GetAvailability(resourceID string, r models.DateRange) ([]models.DayStatus, error)
	// Reservation methods
	SaveReservation(reservation *models.Reservation) error
	GetReservationByNumber(number string) (*models.Reservation, error)
	GetReservationsBySession(sessionID string) ([]models.Reservation, error)
	GetAllReservations() ([]models.Reservation, error)
	UpdateReservationStatus(number string, status models.ReservationStatus, adminNotes string) (*models.Reservation, error)
}
