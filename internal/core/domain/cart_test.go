package domain

import (
	"errors"
	"math"
	"testing"
)

func validEntry() CartEntry {
	return CartEntry{
		ID:    1,
		Title: "Red Shirt",
		Price: 19.99,
		Image: "https://fakestoreapi.com/img/1.jpg",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *CartEntry)
		wantErr bool
	}{
		{"valid", func(e *CartEntry) {}, false},
		{"zero price", func(e *CartEntry) { e.Price = 0 }, false},
		{"zero id", func(e *CartEntry) { e.ID = 0 }, true},
		{"negative id", func(e *CartEntry) { e.ID = -4 }, true},
		{"blank title", func(e *CartEntry) { e.Title = "   " }, true},
		{"negative price", func(e *CartEntry) { e.Price = -1 }, true},
		{"NaN price", func(e *CartEntry) { e.Price = math.NaN() }, true},
		{"infinite price", func(e *CartEntry) { e.Price = math.Inf(1) }, true},
		{"empty image", func(e *CartEntry) { e.Image = "" }, true},
		{"relative image", func(e *CartEntry) { e.Image = "/img/1.jpg" }, true},
		{"ftp image", func(e *CartEntry) { e.Image = "ftp://host/img.jpg" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)

			err := e.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEntry) {
					t.Fatalf("expected ErrInvalidEntry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	e := CartEntry{ID: 2, Title: "  Blue Hat ", Image: " https://example.com/hat.png\n", Category: " hats "}
	n := e.Normalize()

	if n.Title != "Blue Hat" {
		t.Errorf("expected trimmed title, got %q", n.Title)
	}
	if n.Image != "https://example.com/hat.png" {
		t.Errorf("expected trimmed image, got %q", n.Image)
	}
	if n.Category != "hats" {
		t.Errorf("expected trimmed category, got %q", n.Category)
	}
	if e.Title != "  Blue Hat " {
		t.Error("normalize must not modify the receiver")
	}
}

func TestRemoveByID(t *testing.T) {
	entries := []CartEntry{{ID: 1}, {ID: 2}, {ID: 1}, {ID: 3}}

	out, removed := RemoveByID(entries, 1)
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if len(out) != 2 || out[0].ID != 2 || out[1].ID != 3 {
		t.Errorf("unexpected result: %+v", out)
	}
	if len(entries) != 4 {
		t.Error("input slice must be left intact")
	}

	_, removed = RemoveByID(entries, 42)
	if removed != 0 {
		t.Errorf("expected nothing removed, got %d", removed)
	}
}

func TestProductEntry(t *testing.T) {
	p := Product{ID: 7, Title: "Backpack", Price: 109.95, Description: "Fits 15 inch laptops", Category: "bags", Image: "https://example.com/b.jpg"}
	e := p.Entry()

	if e.ID != 7 || e.Title != "Backpack" || e.Price != 109.95 || e.Image != p.Image {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Description != p.Description || e.Category != p.Category {
		t.Errorf("expected description and category carried over, got %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("snapshot of a complete product should validate: %v", err)
	}
}
