package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Category is the closed set of event categories.
type Category string

const (
	CategoryConcerts  Category = "concerts"
	CategorySports    Category = "sports"
	CategoryTheater   Category = "theater"
	CategoryEducation Category = "education"
	CategoryOther     Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryConcerts,
	CategorySports,
	CategoryTheater,
	CategoryEducation,
	CategoryOther,
}

// Valid reports whether c belongs to the enumerated set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
)

// Event is the bookable resource. AvailableSeats is derived and never stored.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	BookedSeats int       `json:"bookedSeats"`
	Category    Category  `json:"category"`
	OrganizerID string    `json:"organizer"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AvailableSeats is capacity minus booked seats.
func (e *Event) AvailableSeats() int {
	return e.Capacity - e.BookedSeats
}

// CheckSeats enforces 0 <= booked <= capacity.
func CheckSeats(booked, capacity int) error {
	if booked < 0 {
		return fmt.Errorf("%w: booked seats cannot be negative", ErrCapacityExceeded)
	}
	if booked > capacity {
		return fmt.Errorf("%w: %d booked seats exceed capacity %d", ErrCapacityExceeded, booked, capacity)
	}
	return nil
}

// Reserve books n seats on e. e is left untouched when the request does not
// fit.
func (e *Event) Reserve(n int) error {
	if err := ValidateSeatCount(n); err != nil {
		return err
	}
	if n > e.AvailableSeats() {
		return fmt.Errorf("%w: requested %d seats, %d available", ErrCapacityExceeded, n, e.AvailableSeats())
	}
	if err := CheckSeats(e.BookedSeats+n, e.Capacity); err != nil {
		return err
	}
	e.BookedSeats += n
	return nil
}

// Release returns n previously booked seats.
func (e *Event) Release(n int) error {
	if err := ValidateSeatCount(n); err != nil {
		return err
	}
	if err := CheckSeats(e.BookedSeats-n, e.Capacity); err != nil {
		return err
	}
	e.BookedSeats -= n
	return nil
}

// Resize changes capacity. Shrinking below the booked seats is rejected.
func (e *Event) Resize(capacity int) error {
	if capacity < 1 {
		return &ValidationError{Violations: []Violation{{Field: "capacity", Message: "must be at least 1"}}}
	}
	if err := CheckSeats(e.BookedSeats, capacity); err != nil {
		return err
	}
	e.Capacity = capacity
	return nil
}

// ValidateSeatCount rejects seat requests below one.
func ValidateSeatCount(n int) error {
	if n < 1 {
		return &ValidationError{Violations: []Violation{{Field: "seats", Message: "must be at least 1"}}}
	}
	return nil
}

// EventDraft is the input to event creation.
type EventDraft struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Price       float64
	Capacity    int
	Category    Category
}

// Normalize trims the text fields.
func (d *EventDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Location = strings.TrimSpace(d.Location)
	d.Category = Category(strings.ToLower(strings.TrimSpace(string(d.Category))))
}

// ValidateNewEvent lists every violation on a draft. The date must be strictly
// after now.
func ValidateNewEvent(d EventDraft, now time.Time) error {
	var vs violations
	validateTitle(&vs, d.Title)
	validateDescription(&vs, d.Description)
	validateDate(&vs, d.Date, now)
	if d.Location == "" {
		vs.add("location", "is required")
	}
	validatePrice(&vs, d.Price)
	if d.Capacity < 1 {
		vs.add("capacity", "must be at least 1")
	}
	validateCategory(&vs, d.Category)
	return vs.err()
}

// NewEvent validates d and returns an active event with no seats booked.
func NewEvent(d EventDraft, organizerID string, now time.Time) (*Event, error) {
	d.Normalize()
	if err := ValidateNewEvent(d, now); err != nil {
		return nil, err
	}
	return &Event{
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date.UTC(),
		Location:    d.Location,
		Price:       d.Price,
		Capacity:    d.Capacity,
		Category:    d.Category,
		OrganizerID: organizerID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// EventChanges carries the optional fields of an event update.
type EventChanges struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
	Price       *float64
	Capacity    *int
	Category    *Category
}

// Apply validates the changes against e and applies them all or none.
func (c EventChanges) Apply(e *Event, now time.Time) error {
	next := *e
	var vs violations
	if c.Title != nil {
		next.Title = strings.TrimSpace(*c.Title)
		validateTitle(&vs, next.Title)
	}
	if c.Description != nil {
		next.Description = *c.Description
		validateDescription(&vs, next.Description)
	}
	if c.Date != nil {
		next.Date = c.Date.UTC()
		validateDate(&vs, next.Date, now)
	}
	if c.Location != nil {
		next.Location = strings.TrimSpace(*c.Location)
		if next.Location == "" {
			vs.add("location", "is required")
		}
	}
	if c.Price != nil {
		next.Price = *c.Price
		validatePrice(&vs, next.Price)
	}
	if c.Category != nil {
		next.Category = Category(strings.ToLower(strings.TrimSpace(string(*c.Category))))
		validateCategory(&vs, next.Category)
	}
	if err := vs.err(); err != nil {
		return err
	}
	if c.Capacity != nil {
		if err := next.Resize(*c.Capacity); err != nil {
			return err
		}
	}
	next.UpdatedAt = now
	*e = next
	return nil
}

func validateTitle(vs *violations, title string) {
	switch {
	case title == "":
		vs.add("title", "is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		vs.add("title", "must be at most 100 characters")
	}
}

func validateDescription(vs *violations, desc string) {
	switch {
	case strings.TrimSpace(desc) == "":
		vs.add("description", "is required")
	case utf8.RuneCountInString(desc) > maxDescriptionLen:
		vs.add("description", "must be at most 1000 characters")
	}
}

func validateDate(vs *violations, date, now time.Time) {
	switch {
	case date.IsZero():
		vs.add("date", "is required")
	case !date.After(now):
		vs.add("date", "must be in the future")
	}
}

func validatePrice(vs *violations, price float64) {
	if price < 0 {
		vs.add("price", "cannot be negative")
	}
}

func validateCategory(vs *violations, c Category) {
	if !c.Valid() {
		vs.add("category", "must be one of: concerts sports theater education other")
	}
}
