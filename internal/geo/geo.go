// Package geo maps GDELT country codes to ISO codes and display names.
package geo

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"heatmap/internal"
)

//go:embed countries.yaml
var countriesYAML []byte

var (
	ErrEmptyTable    = errors.New("country table has no entries")
	ErrDuplicateCode = errors.New("duplicate fips code in country table")
	ErrMissingISO2   = errors.New("country entry is missing iso2")
)

var (
	defaultTable     *Table
	defaultTableErr  error
	defaultTableOnce sync.Once
)

type Country struct {
	FIPS string `yaml:"fips"`
	ISO2 string `yaml:"iso2"`
	Name string `yaml:"name"`
}

type Table struct {
	byFIPS map[string]Country
}

// Parse builds a table from YAML with a top-level "countries" list.
func Parse(data []byte) (*Table, error) {
	var doc struct {
		Countries []Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse country table: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, ErrEmptyTable
	}

	t := &Table{byFIPS: make(map[string]Country, len(doc.Countries))}
	for _, c := range doc.Countries {
		c.FIPS = strings.ToUpper(strings.TrimSpace(c.FIPS))
		c.ISO2 = strings.ToUpper(strings.TrimSpace(c.ISO2))
		if c.ISO2 == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingISO2, c.FIPS)
		}
		if _, ok := t.byFIPS[c.FIPS]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, c.FIPS)
		}
		t.byFIPS[c.FIPS] = c
	}
	return t, nil
}

// Default returns the embedded table.
func Default() *Table {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = Parse(countriesYAML)
	})
	if defaultTableErr != nil {
		panic(defaultTableErr)
	}
	return defaultTable
}

func (t *Table) Len() int {
	return len(t.byFIPS)
}

func (t *Table) Lookup(fips string) (Country, bool) {
	c, ok := t.byFIPS[strings.ToUpper(strings.TrimSpace(fips))]
	return c, ok
}

// Annotate fills ISO2 and CountryName where the code is known. Unknown codes
// are left as they are.
func (t *Table) Annotate(rows []internal.CountrySentiment) []internal.CountrySentiment {
	out := make([]internal.CountrySentiment, len(rows))
	for i, row := range rows {
		if c, ok := t.Lookup(row.CountryCode); ok {
			row.ISO2 = c.ISO2
			row.CountryName = c.Name
		}
		out[i] = row
	}
	return out
}
