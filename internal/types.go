package internal

// RawRow is one GKG row as delivered by an extractor. Any field may be nil.
type RawRow struct {
	URL          *string `json:"url"`
	Extras       *string `json:"extras"`
	RawLocations *string `json:"raw_locations"`
	RawTone      *string `json:"raw_tone"`
	RawDate      *string `json:"raw_date"`
	RawThemes    *string `json:"raw_themes"`
}

type Location struct {
	Type        int      `json:"type"`
	Name        string   `json:"name"`
	CountryCode *string  `json:"country_code"`
	ADM1Code    *string  `json:"adm1_code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type Article struct {
	URL           *string   `json:"url"`
	Title         *string   `json:"title"`
	SourceName    *string   `json:"source_name"`
	AvgTone       float64   `json:"avg_tone"`
	PublishedDate string    `json:"published_date"`
	Themes        []string  `json:"themes"`
	Specific      *Location `json:"-"`
	Mentioned     *Location `json:"-"`
}

// LocationColumns is one selected location flattened under a column prefix.
type LocationColumns struct {
	LocationType *int
	LocationName *string
	CountryCode  *string
	ADM1Code     *string
	Latitude     *float64
	Longitude    *float64
}

func FlattenLocation(loc *Location) LocationColumns {
	if loc == nil {
		return LocationColumns{}
	}
	t := loc.Type
	name := loc.Name
	return LocationColumns{
		LocationType: &t,
		LocationName: &name,
		CountryCode:  loc.CountryCode,
		ADM1Code:     loc.ADM1Code,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
	}
}

// ArticleRow is the fixed storage schema of an Article.
type ArticleRow struct {
	URL           *string  `json:"url"`
	Title         *string  `json:"title"`
	SourceName    *string  `json:"source_name"`
	AvgTone       float64  `json:"avg_tone"`
	PublishedDate string   `json:"published_date"`
	Themes        []string `json:"themes"`

	SpecificLocationType *int     `json:"specific_location_type"`
	SpecificLocationName *string  `json:"specific_location_name"`
	SpecificCountryCode  *string  `json:"specific_country_code"`
	SpecificADM1Code     *string  `json:"specific_adm1_code"`
	SpecificLatitude     *float64 `json:"specific_latitude"`
	SpecificLongitude    *float64 `json:"specific_longitude"`

	MentionedLocationType *int     `json:"mentioned_location_type"`
	MentionedLocationName *string  `json:"mentioned_location_name"`
	MentionedCountryCode  *string  `json:"mentioned_country_code"`
	MentionedADM1Code     *string  `json:"mentioned_adm1_code"`
	MentionedLatitude     *float64 `json:"mentioned_latitude"`
	MentionedLongitude    *float64 `json:"mentioned_longitude"`
}

func (a Article) Row() ArticleRow {
	s := FlattenLocation(a.Specific)
	m := FlattenLocation(a.Mentioned)
	themes := a.Themes
	if themes == nil {
		themes = []string{}
	}
	return ArticleRow{
		URL:           a.URL,
		Title:         a.Title,
		SourceName:    a.SourceName,
		AvgTone:       a.AvgTone,
		PublishedDate: a.PublishedDate,
		Themes:        themes,

		SpecificLocationType: s.LocationType,
		SpecificLocationName: s.LocationName,
		SpecificCountryCode:  s.CountryCode,
		SpecificADM1Code:     s.ADM1Code,
		SpecificLatitude:     s.Latitude,
		SpecificLongitude:    s.Longitude,

		MentionedLocationType: m.LocationType,
		MentionedLocationName: m.LocationName,
		MentionedCountryCode:  m.CountryCode,
		MentionedADM1Code:     m.ADM1Code,
		MentionedLatitude:     m.Latitude,
		MentionedLongitude:    m.Longitude,
	}
}

type CountrySentiment struct {
	CountryCode  string  `json:"country_code"`
	CountryName  string  `json:"country_name,omitempty"`
	ISO2         string  `json:"iso2,omitempty"`
	AvgTone      float64 `json:"avg_tone"`
	ArticleCount int     `json:"article_count"`
}

type RunSummary struct {
	RunID       string             `json:"run_id"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Extracted   int                `json:"extracted"`
	Transformed int                `json:"transformed"`
	Loaded      int                `json:"loaded"`
	Deleted     int                `json:"deleted"`
	TimingsMs   map[string]float64 `json:"timings_ms"`
}
