package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigbell/bellhop/internal/bellhop/catalog"
)

func TestDefault(t *testing.T) {
	cat := catalog.Default()

	if err := catalog.Validate(cat); err != nil {
		t.Fatalf("default catalog is invalid: %v", err)
	}
	if len(cat.Customers) != 2 {
		t.Fatalf("got %d customers, want 2", len(cat.Customers))
	}
	if cat.Customers[0].ID != "goognu" || cat.Customers[1].ID != "hiringgo" {
		t.Errorf("customers: %+v", cat.Customers)
	}
	if cat.Texts.Welcome == "" || cat.Texts.InternalError == "" {
		t.Error("default texts are incomplete")
	}
}

func TestIsCustomer(t *testing.T) {
	cat := catalog.Default()

	if !cat.IsCustomer("goognu") {
		t.Error("goognu should be a customer")
	}
	if cat.IsCustomer("custom") {
		t.Error("the custom sentinel is not a customer")
	}
	if cat.IsCustomer("unknown") {
		t.Error("unknown should not be a customer")
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cat, err := catalog.Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cat.Customers[0].ID != "goognu" {
			t.Errorf("customers: %+v", cat.Customers)
		}
	})

	t.Run("overlay replaces customers and named texts only", func(t *testing.T) {
		path := writeFile(t, `
customers:
  - id: acme
    title: Acme
texts:
  welcome: "Hello from Acme!"
`)
		cat, err := catalog.Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(cat.Customers) != 1 || cat.Customers[0].ID != "acme" {
			t.Errorf("customers: %+v", cat.Customers)
		}
		if cat.Texts.Welcome != "Hello from Acme!" {
			t.Errorf("welcome: %q", cat.Texts.Welcome)
		}
		// Texts the overlay does not name keep their defaults.
		if cat.Texts.Terminated != catalog.Default().Texts.Terminated {
			t.Errorf("terminated text changed: %q", cat.Texts.Terminated)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeFile(t, "customers: [unterminated")
		if _, err := catalog.Load(path); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("invalid overlay is rejected", func(t *testing.T) {
		path := writeFile(t, `
customers:
  - id: custom
    title: Reserved
`)
		if _, err := catalog.Load(path); err == nil {
			t.Fatal("expected an error for a reserved customer id")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *catalog.Catalog {
		cat := catalog.Default()
		return cat
	}

	tests := []struct {
		name    string
		mutate  func(*catalog.Catalog)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*catalog.Catalog) {},
		},
		{
			name:    "no customers",
			mutate:  func(c *catalog.Catalog) { c.Customers = nil },
			wantErr: "must not be empty",
		},
		{
			name: "too many customers",
			mutate: func(c *catalog.Catalog) {
				c.Customers = append(c.Customers, catalog.Customer{ID: "third", Title: "Third"})
			},
			wantErr: "at most",
		},
		{
			name:    "empty id",
			mutate:  func(c *catalog.Catalog) { c.Customers[0].ID = "  " },
			wantErr: "id must not be empty",
		},
		{
			name:    "upper-case id",
			mutate:  func(c *catalog.Catalog) { c.Customers[0].ID = "Goognu" },
			wantErr: "lower-case",
		},
		{
			name:    "reserved id",
			mutate:  func(c *catalog.Catalog) { c.Customers[0].ID = "custom" },
			wantErr: "reserved",
		},
		{
			name:    "empty title",
			mutate:  func(c *catalog.Catalog) { c.Customers[0].Title = "" },
			wantErr: "title must not be empty",
		},
		{
			name:    "duplicate id",
			mutate:  func(c *catalog.Catalog) { c.Customers[1].ID = c.Customers[0].ID },
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := valid()
			tt.mutate(cat)
			err := catalog.Validate(cat)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	t.Run("nil catalog", func(t *testing.T) {
		if err := catalog.Validate(nil); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}
