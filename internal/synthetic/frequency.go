package synthetic

import (
	"github.com/irfndi/synthseries/internal/calendar"
	"golang.org/x/exp/rand"
)

// Profile is the static description of a sampling frequency. Timescale is the
// number of periods in a 30 day month; the exponential trend variance is
// divided by it so finer granularities drift more gently per step.
type Profile struct {
	Label      string  `json:"label"`
	OffsetCode string  `json:"offset_code"`
	Timescale  float64 `json:"timescale"`

	offset calendar.Offset
}

// Offset returns the calendar offset the profile's index steps by
func (p Profile) Offset() calendar.Offset {
	return p.offset
}

// Labels lists the canonical frequency labels, in the order used for the
// default random choice.
var Labels = []string{
	calendar.Minute,
	calendar.Hour,
	calendar.Day,
	calendar.Week,
	calendar.MonthStart,
	calendar.YearEnd,
}

var profiles = map[string]Profile{
	calendar.Minute:     newProfile(calendar.Minute, 60*24*30),
	calendar.Hour:       newProfile(calendar.Hour, 24*30),
	calendar.Day:        newProfile(calendar.Day, 30),
	calendar.Week:       newProfile(calendar.Week, 30.0/7.0),
	calendar.MonthStart: newProfile(calendar.MonthStart, 1),
	calendar.YearEnd:    newProfile(calendar.YearEnd, 1.0/12.0),
}

func newProfile(code string, timescale float64) Profile {
	return Profile{
		Label:      code,
		OffsetCode: code,
		Timescale:  timescale,
		offset:     calendar.MustParse(code),
	}
}

var aliases = map[string]string{
	"minutely": calendar.Minute,
	"hourly":   calendar.Hour,
	"daily":    calendar.Day,
	"weekly":   calendar.Week,
	"monthly":  calendar.MonthStart,
	"yearly":   calendar.YearEnd,
}

// Resolve looks up the profile of a frequency label. Long aliases such as
// "daily" resolve to their canonical profile.
func Resolve(label string) (Profile, error) {
	if canonical, ok := aliases[label]; ok {
		label = canonical
	}
	p, ok := profiles[label]
	if !ok {
		return Profile{}, unsupportedFrequency(label)
	}
	return p, nil
}

// Profiles returns every canonical profile in Labels order
func Profiles() []Profile {
	out := make([]Profile, 0, len(Labels))
	for _, l := range Labels {
		out = append(out, profiles[l])
	}
	return out
}

// ChooseLabel picks a canonical label uniformly at random
func ChooseLabel(rng *rand.Rand) string {
	return Labels[rng.Intn(len(Labels))]
}
