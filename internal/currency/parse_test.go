package currency

import "testing"

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1,234.56", 123456},
		{"1.234,56", 123456},
		{"12,50", 1250},
		{"1250", 125000},
		{"2,50€", 250},
		{"$0.03", 3},
		{"1.234.567,89", 123456789},
		{"0,03€ or more", 3},
		{"&#8364; 4,20", 420},
		{"  7,77 ", 777},
	}

	for _, tc := range cases {
		got, ok := ParseCents(tc.in)
		if !ok {
			t.Fatalf("ParseCents(%q) reported no price", tc.in)
		}
		if got != tc.want {
			t.Fatalf("ParseCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseCentsNoPrice(t *testing.T) {
	for _, in := range []string{"", "no listings", "---", "€"} {
		if got, ok := ParseCents(in); ok {
			t.Fatalf("ParseCents(%q) = %d, expected no price", in, got)
		}
	}
}

func TestFirstInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"2,419 listings", 2419},
		{"17", 17},
		{"x3y", 3},
		{"", 0},
		{"none", 0},
	}

	for _, tc := range cases {
		if got := FirstInt(tc.in); got != tc.want {
			t.Fatalf("FirstInt(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
