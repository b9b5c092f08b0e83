package pipeline

import (
	"heatmap/internal"
	"heatmap/internal/util"
)

// SelectMostSpecific returns the location with the highest type. On a tie the
// earliest location in the list wins.
func SelectMostSpecific(locations []internal.Location) *internal.Location {
	if len(locations) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(locations); i++ {
		if locations[i].Type > locations[best].Type {
			best = i
		}
	}
	loc := locations[best]
	return &loc
}

type mentionKey struct {
	countryCode string
	hasCountry  bool
	name        string
}

func keyOf(loc internal.Location) mentionKey {
	return mentionKey{countryCode: util.Deref(loc.CountryCode), hasCountry: loc.CountryCode != nil, name: loc.Name}
}

// SelectMostMentioned groups locations by (country code, name) and returns the
// first member of the largest group. Groups tie in order of first appearance.
func SelectMostMentioned(locations []internal.Location) *internal.Location {
	if len(locations) == 0 {
		return nil
	}

	counts := map[mentionKey]int{}
	firstIndex := map[mentionKey]int{}
	order := []mentionKey{}
	for i, loc := range locations {
		k := keyOf(loc)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			firstIndex[k] = i
		}
		counts[k]++
	}

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	loc := locations[firstIndex[best]]
	return &loc
}
