package forecast

import (
	"sort"
	"strings"
	"time"
)

// HolidayEvent is a dated calendar event usable as a fitting regressor.
// Events sharing a name across years share one learned coefficient.
type HolidayEvent struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Calendar supplies holiday events for one region
type Calendar interface {
	// Region returns the region code this calendar serves
	Region() string
	// Events returns all events with fromYear <= year <= toYear,
	// identical on repeated calls for the same inputs
	Events(fromYear, toYear int) []HolidayEvent
}

// Registry holds available calendars
var calendarRegistry = make(map[string]Calendar)

// RegisterCalendar adds a calendar to the registry
func RegisterCalendar(c Calendar) {
	calendarRegistry[strings.ToLower(c.Region())] = c
}

// HolidaysFor returns the holiday events for a region across a year range,
// sorted by date. Region codes are case-insensitive. Unknown regions fail
// with UnsupportedRegionError; callers fall back to an empty set since
// holiday effects are an enhancement.
func HolidaysFor(region string, fromYear, toYear int) ([]HolidayEvent, error) {
	cal, ok := calendarRegistry[strings.ToLower(region)]
	if !ok {
		return nil, &UnsupportedRegionError{Region: region}
	}

	if fromYear > toYear {
		fromYear, toYear = toYear, fromYear
	}

	events := cal.Events(fromYear, toYear)
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].Name < events[j].Name
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

// Regions returns the registered region codes in sorted order
func Regions() []string {
	regions := make([]string, 0, len(calendarRegistry))
	for r := range calendarRegistry {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

func init() {
	RegisterCalendar(indonesiaCalendar{})
	RegisterCalendar(usCalendar{})
}

// indonesiaCalendar is table-driven: the movable Islamic and Balinese
// observances follow lunar calendars with no practical closed form, so
// the civil dates are pinned per year.
type indonesiaCalendar struct{}

func (indonesiaCalendar) Region() string { return "id" }

var indonesiaHolidays = map[int][]struct {
	month time.Month
	day   int
	name  string
}{
	2020: {
		{time.January, 1, "New Year's Day"},
		{time.January, 25, "Chinese New Year"},
		{time.March, 25, "Nyepi"},
		{time.May, 24, "Eid al-Fitr"},
		{time.May, 25, "Eid al-Fitr"},
		{time.July, 31, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2021: {
		{time.January, 1, "New Year's Day"},
		{time.February, 12, "Chinese New Year"},
		{time.March, 14, "Nyepi"},
		{time.May, 13, "Eid al-Fitr"},
		{time.May, 14, "Eid al-Fitr"},
		{time.July, 20, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2022: {
		{time.January, 1, "New Year's Day"},
		{time.February, 1, "Chinese New Year"},
		{time.March, 3, "Nyepi"},
		{time.May, 2, "Eid al-Fitr"},
		{time.May, 3, "Eid al-Fitr"},
		{time.July, 10, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2023: {
		{time.January, 1, "New Year's Day"},
		{time.January, 22, "Chinese New Year"},
		{time.March, 22, "Nyepi"},
		{time.April, 22, "Eid al-Fitr"},
		{time.April, 23, "Eid al-Fitr"},
		{time.June, 29, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2024: {
		{time.January, 1, "New Year's Day"},
		{time.February, 10, "Chinese New Year"},
		{time.March, 11, "Nyepi"},
		{time.April, 10, "Eid al-Fitr"},
		{time.April, 11, "Eid al-Fitr"},
		{time.June, 17, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2025: {
		{time.January, 1, "New Year's Day"},
		{time.January, 29, "Chinese New Year"},
		{time.March, 29, "Nyepi"},
		{time.March, 31, "Eid al-Fitr"},
		{time.April, 1, "Eid al-Fitr"},
		{time.June, 7, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2026: {
		{time.January, 1, "New Year's Day"},
		{time.February, 17, "Chinese New Year"},
		{time.March, 19, "Nyepi"},
		{time.March, 20, "Eid al-Fitr"},
		{time.March, 21, "Eid al-Fitr"},
		{time.May, 27, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
	2027: {
		{time.January, 1, "New Year's Day"},
		{time.February, 6, "Chinese New Year"},
		{time.March, 8, "Nyepi"},
		{time.March, 10, "Eid al-Fitr"},
		{time.March, 11, "Eid al-Fitr"},
		{time.May, 16, "Eid al-Adha"},
		{time.August, 17, "Independence Day"},
		{time.December, 25, "Christmas Day"},
	},
}

func (indonesiaCalendar) Events(fromYear, toYear int) []HolidayEvent {
	var events []HolidayEvent
	for year := fromYear; year <= toYear; year++ {
		for _, h := range indonesiaHolidays[year] {
			events = append(events, HolidayEvent{
				Date: time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC),
				Name: h.name,
			})
		}
	}
	return events
}

// usCalendar computes the US federal holidays that fall on fixed or
// weekday-rule dates
type usCalendar struct{}

func (usCalendar) Region() string { return "us" }

func (usCalendar) Events(fromYear, toYear int) []HolidayEvent {
	var events []HolidayEvent
	for year := fromYear; year <= toYear; year++ {
		events = append(events,
			HolidayEvent{Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Name: "New Year's Day"},
			HolidayEvent{Date: nthWeekday(year, time.May, time.Monday, -1), Name: "Memorial Day"},
			HolidayEvent{Date: time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC), Name: "Independence Day"},
			HolidayEvent{Date: nthWeekday(year, time.September, time.Monday, 1), Name: "Labor Day"},
			HolidayEvent{Date: nthWeekday(year, time.November, time.Thursday, 4), Name: "Thanksgiving"},
			HolidayEvent{Date: time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC), Name: "Christmas Day"},
		)
	}
	return events
}

// nthWeekday returns the nth occurrence of a weekday in a month; n == -1
// selects the last occurrence
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	if n == -1 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		offset := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -offset)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+(n-1)*7)
}
