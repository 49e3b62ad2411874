package domain

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
)

var ErrInvalidEntry = errors.New("invalid cart entry")

// CartEntry is a snapshot of a product taken when it was added to the cart.
// The same product added twice yields two entries.
type CartEntry struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// Normalize returns a copy with surrounding whitespace removed from the text fields.
func (e CartEntry) Normalize() CartEntry {
	e.Title = strings.TrimSpace(e.Title)
	e.Image = strings.TrimSpace(e.Image)
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	return e
}

func (e CartEntry) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidEntry, e.ID)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidEntry)
	}
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) || e.Price < 0 {
		return fmt.Errorf("%w: price must be a non-negative number, got %v", ErrInvalidEntry, e.Price)
	}

	u, err := url.Parse(strings.TrimSpace(e.Image))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: image must be an absolute http(s) url, got %q", ErrInvalidEntry, e.Image)
	}

	return nil
}

// RemoveByID returns a new slice without any entry carrying id, and how many were dropped.
func RemoveByID(entries []CartEntry, id int64) ([]CartEntry, int) {
	out := make([]CartEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == id {
			continue
		}
		out = append(out, e)
	}
	return out, len(entries) - len(out)
}
