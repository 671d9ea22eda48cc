package announce

import "testing"

func TestKeyIgnoresTimeAndURL(t *testing.T) {
	t.Parallel()
	a := Announcement{Source: "yeepay", Title: "upgrade", Date: "2025-01-02", Time: "10:00:00", URL: "https://a"}
	b := Announcement{Source: "yeepay", Title: "upgrade", Date: "2025-01-02", Time: "", URL: "https://b"}
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestKeyDistinguishesFields(t *testing.T) {
	t.Parallel()
	base := Announcement{Source: "s", Title: "t", Date: "2025-01-02"}
	tests := []struct {
		name  string
		other Announcement
	}{
		{name: "source", other: Announcement{Source: "s2", Title: "t", Date: "2025-01-02"}},
		{name: "title", other: Announcement{Source: "s", Title: "t2", Date: "2025-01-02"}},
		{name: "date", other: Announcement{Source: "s", Title: "t", Date: "2025-01-03"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if base.Key() == tt.other.Key() {
				t.Fatalf("expected distinct keys, both %q", base.Key())
			}
		})
	}
}

func TestKeySeparatorInTitle(t *testing.T) {
	t.Parallel()
	// With a naive "_" join both of these would become "a_b_c_2025-01-01".
	x := Announcement{Source: "a_b", Title: "c", Date: "2025-01-01"}
	y := Announcement{Source: "a", Title: "b_c", Date: "2025-01-01"}
	if x.Key() == y.Key() {
		t.Fatalf("separator collision: %q", x.Key())
	}
	p := Announcement{Source: "a", Title: "x|5:y", Date: "2025-01-01"}
	q := Announcement{Source: "a", Title: "x", Date: "5:y|2025-01-01"}
	if p.Key() == q.Key() {
		t.Fatalf("length-prefix collision: %q", p.Key())
	}
}

func TestParsedDate(t *testing.T) {
	t.Parallel()
	d, err := Announcement{Date: "2025-01-15"}.ParsedDate()
	if err != nil {
		t.Fatalf("ParsedDate: %v", err)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 15 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := (Announcement{Date: "15/01/2025"}).ParsedDate(); err == nil {
		t.Fatal("expected error for bad date")
	}
}

func TestSplitDateTime(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, date, clock string }{
		{"2025-01-02 03:04:05", "2025-01-02", "03:04:05"},
		{"  2025-01-02  ", "2025-01-02", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		d, c := SplitDateTime(tt.in)
		if d != tt.date || c != tt.clock {
			t.Fatalf("SplitDateTime(%q) = (%q,%q), want (%q,%q)", tt.in, d, c, tt.date, tt.clock)
		}
	}
}
