package pipeline

import (
	"math"
	"reflect"
	"testing"
)

func sp(v string) *string { return &v }

func TestParseTone(t *testing.T) {
	cases := []struct {
		name  string
		input *string
		want  *float64
	}{
		{name: "negative", input: sp("-3.45,2.1,1.0,5.2,20.0,10.0,100"), want: fp(-3.45)},
		{name: "positive", input: sp("5.67,1.0,2.0,3.0,4.0,5.0,50"), want: fp(5.67)},
		{name: "single field", input: sp("1.5"), want: fp(1.5)},
		{name: "padded", input: sp(" 2.25 ,1"), want: fp(2.25)},
		{name: "nil", input: nil, want: nil},
		{name: "empty", input: sp(""), want: nil},
		{name: "not numeric", input: sp("abc,1.0"), want: nil},
		{name: "empty first field", input: sp(",1.0"), want: nil},
		{name: "nan", input: sp("NaN,1.0"), want: nil},
		{name: "inf", input: sp("Inf,1.0"), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTone(tc.input)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("got %v want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("got nil want %v", *tc.want)
			}
			if math.Abs(*got-*tc.want) > 1e-9 {
				t.Fatalf("got %v want %v", *got, *tc.want)
			}
		})
	}
}

const (
	singleLocation = "4#Tokyo, Tokyo, Japan#JA#JA40#35.6895#139.6917#-1234567"
	multiLocations = "1#Japan#JA##35.6895#139.6917#JA;" +
		"4#Tokyo, Tokyo, Japan#JA#JA40#35.6895#139.6917#-123;" +
		"1#Japan#JA##35.6895#139.6917#JA;" +
		"5#Shibuya, Tokyo, Japan#JA#JA40#35.662#139.7038#-456"
)

func TestParseLocationsSingle(t *testing.T) {
	locs := ParseLocations(sp(singleLocation))
	if len(locs) != 1 {
		t.Fatalf("len=%d", len(locs))
	}
	loc := locs[0]
	if loc.Type != 4 || loc.Name != "Tokyo, Tokyo, Japan" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if loc.CountryCode == nil || *loc.CountryCode != "JA" {
		t.Fatalf("country code = %v", loc.CountryCode)
	}
	if loc.ADM1Code == nil || *loc.ADM1Code != "JA40" {
		t.Fatalf("adm1 = %v", loc.ADM1Code)
	}
	if loc.Latitude == nil || *loc.Latitude != 35.6895 || loc.Longitude == nil || *loc.Longitude != 139.6917 {
		t.Fatalf("coordinates = %v %v", loc.Latitude, loc.Longitude)
	}
}

func TestParseLocationsMultiKeepsOrder(t *testing.T) {
	locs := ParseLocations(sp(multiLocations))
	if len(locs) != 4 {
		t.Fatalf("len=%d", len(locs))
	}
	types := []int{locs[0].Type, locs[1].Type, locs[2].Type, locs[3].Type}
	if !reflect.DeepEqual(types, []int{1, 4, 1, 5}) {
		t.Fatalf("types=%v", types)
	}
	if locs[0].ADM1Code != nil {
		t.Fatalf("empty adm1 should be absent, got %q", *locs[0].ADM1Code)
	}
}

func TestParseLocationsSkipsMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input *string
		want  int
	}{
		{name: "nil", input: nil, want: 0},
		{name: "empty", input: sp(""), want: 0},
		{name: "garbage", input: sp("garbage#data"), want: 0},
		{name: "bad type", input: sp("x#Japan#JA##35.6#139.6#JA"), want: 0},
		{name: "bad latitude", input: sp("1#Japan#JA##north#139.6#JA"), want: 0},
		{name: "nan longitude", input: sp("1#Japan#JA##35.6#NaN#JA"), want: 0},
		{name: "six fields", input: sp("1#Japan#JA##35.6#139.6"), want: 1},
		{name: "mixed", input: sp("1#Japan#JA##35.6#139.6#JA;short;2#Texas, United States#US#USTX#31#-100#TX"), want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLocations(tc.input)
			if got == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(got) != tc.want {
				t.Fatalf("len=%d want %d", len(got), tc.want)
			}
		})
	}
}

func TestParseLocationsEmptyFieldsAreAbsent(t *testing.T) {
	locs := ParseLocations(sp("1#Somewhere####"))
	if len(locs) != 1 {
		t.Fatalf("len=%d", len(locs))
	}
	loc := locs[0]
	if loc.CountryCode != nil || loc.ADM1Code != nil || loc.Latitude != nil || loc.Longitude != nil {
		t.Fatalf("expected absent fields: %+v", loc)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name  string
		input *string
		want  *string
	}{
		{name: "timestamp", input: sp("20250615123456"), want: sp("2025-06-15")},
		{name: "string timestamp", input: sp("20250101000000"), want: sp("2025-01-01")},
		{name: "eight digits", input: sp("20250615"), want: sp("2025-06-15")},
		{name: "float text", input: sp("20250615120000.0"), want: sp("2025-06-15")},
		{name: "no calendar check", input: sp("20251399000000"), want: sp("2025-13-99")},
		{name: "short", input: sp("12345"), want: nil},
		{name: "seven digits", input: sp("2025061"), want: nil},
		{name: "nil", input: nil, want: nil},
		{name: "empty", input: sp(""), want: nil},
		{name: "not a number", input: sp("yesterday"), want: nil},
		{name: "negative", input: sp("-20250615"), want: nil},
		{name: "leading plus and zeros", input: sp("+0020250615"), want: sp("2025-06-15")},
		{name: "nineteen digits", input: sp("2025061512345600000"), want: sp("2025-06-15")},
		{name: "two to the sixty-third", input: sp("9223372036854775808"), want: sp("9223-37-20")},
		{name: "twenty digits", input: sp("20250615123456000000"), want: sp("2025-06-15")},
		{name: "all nines", input: sp("99999999999999999999"), want: sp("9999-99-99")},
		{name: "float beyond int64", input: sp("9223372036854775808.0"), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.input)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("got %q want nil", *got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("got %v want %q", got, *tc.want)
			}
		})
	}
}

func TestParseThemes(t *testing.T) {
	cases := []struct {
		name  string
		input *string
		want  []string
	}{
		{name: "dedup", input: sp("A,100;B,200;A,300"), want: []string{"A", "B"}},
		{
			name:  "gkg themes",
			input: sp("TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,100;ECON_COST,200;TAX_FNCACT_ARTIFICIAL_INTELLIGENCE,300"),
			want:  []string{"TAX_FNCACT_ARTIFICIAL_INTELLIGENCE", "ECON_COST"},
		},
		{name: "whitespace and empties", input: sp(" A,1 ;; ;,5;B"), want: []string{"A", "B"}},
		{name: "nil", input: nil, want: []string{}},
		{name: "empty", input: sp(""), want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseThemes(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func fp(v float64) *float64 { return &v }
