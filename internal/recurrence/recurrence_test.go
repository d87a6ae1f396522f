package recurrence

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"skillsched/internal/calendar"
)

const testZone = "America/Los_Angeles"

func tod(hour, minute int) *TimeOfDay {
	t := NewTimeOfDay(hour, minute)
	return &t
}

func zoned(freq int, rule Rule) Recurrence {
	return Recurrence{Frequency: freq, TimeZone: testZone, Rule: rule}
}

func weekly(days ...int) Recurrence {
	return zoned(1, Weekly{TimeOfDay: tod(9, 0), DaysOfWeek: calendar.DaysOfWeekFromInts(days)})
}

func TestNew(t *testing.T) {
	r := New()
	assert.Equal(t, KindMinutely, r.TypeName())
	assert.Equal(t, 1, r.Frequency)
	assert.Equal(t, 0, r.TimesHasRun)
	assert.Empty(t, r.DaysOfWeek())
	assert.True(t, r.IsValid())

	assert.Equal(t, KindMinutely, Recurrence{}.TypeName(), "a nil rule reads as minutely")
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		r    Recurrence
		want bool
	}{
		{"minutely", Recurrence{Frequency: 1, Rule: Minutely{}}, true},
		{"minutely zero frequency", Recurrence{Frequency: 0, Rule: Minutely{}}, false},
		{"minutely negative frequency", Recurrence{Frequency: -2, Rule: Minutely{}}, false},

		{"hourly on the hour", zoned(1, Hourly{MinuteOfHour: calendar.NewMinute(0)}), true},
		{"hourly 35", zoned(1, Hourly{MinuteOfHour: calendar.NewMinute(35)}), true},
		{"hourly 59", zoned(1, Hourly{MinuteOfHour: calendar.NewMinute(59)}), true},
		{"hourly minute 60", zoned(1, Hourly{MinuteOfHour: calendar.NewMinute(60)}), false},
		{"hourly zero frequency", zoned(0, Hourly{MinuteOfHour: calendar.NewMinute(59)}), false},
		{"hourly without zone", Recurrence{Frequency: 1, Rule: Hourly{MinuteOfHour: calendar.NewMinute(5)}}, false},
		{"hourly absent minute", zoned(1, Hourly{}), false},

		{"daily midnight", zoned(1, Daily{TimeOfDay: tod(0, 0)}), true},
		{"daily 12:59", zoned(2, Daily{TimeOfDay: tod(12, 59)}), true},
		{"daily 23:30", zoned(5, Daily{TimeOfDay: tod(23, 30)}), true},
		{"daily zero frequency", zoned(0, Daily{TimeOfDay: tod(12, 0)}), false},
		{"daily hour 24", zoned(1, Daily{TimeOfDay: tod(24, 0)}), false},
		{"daily minute 60", zoned(1, Daily{TimeOfDay: tod(12, 60)}), false},
		{"daily no time", zoned(1, Daily{}), false},
		{"daily no zone", Recurrence{Frequency: 1, Rule: Daily{TimeOfDay: tod(9, 0)}}, false},

		{"weekly", weekly(1, 3, 5), true},
		{"weekly no days", weekly(), false},
		{"weekly day 8", weekly(1, 8), false},
		{"weekly day 0", weekly(0), false},
		{"weekly hour 24", zoned(1, Weekly{TimeOfDay: tod(24, 0), DaysOfWeek: calendar.DaysOfWeekFromInts([]int{1})}), false},

		{"monthly 1st", zoned(1, MonthlyByDayOfMonth{TimeOfDay: tod(9, 0), DayOfMonth: calendar.NewDayOfMonth(1)}), true},
		{"monthly 31st", zoned(3, MonthlyByDayOfMonth{TimeOfDay: tod(9, 0), DayOfMonth: calendar.NewDayOfMonth(31)}), true},
		{"monthly 32nd", zoned(1, MonthlyByDayOfMonth{TimeOfDay: tod(9, 0), DayOfMonth: calendar.NewDayOfMonth(32)}), false},
		{"monthly no day", zoned(1, MonthlyByDayOfMonth{TimeOfDay: tod(9, 0)}), false},

		{"third tuesday", zoned(1, MonthlyByNthDayOfWeek{TimeOfDay: tod(9, 0), NthDayOfWeek: calendar.NewBoundedInt(3), DayOfWeek: calendar.Tuesday}), true},
		{"fifth sunday", zoned(1, MonthlyByNthDayOfWeek{TimeOfDay: tod(9, 0), NthDayOfWeek: calendar.NewBoundedInt(5), DayOfWeek: calendar.Sunday}), true},
		{"sixth tuesday", zoned(1, MonthlyByNthDayOfWeek{TimeOfDay: tod(9, 0), NthDayOfWeek: calendar.NewBoundedInt(6), DayOfWeek: calendar.Tuesday}), false},
		{"zeroth tuesday", zoned(1, MonthlyByNthDayOfWeek{TimeOfDay: tod(9, 0), NthDayOfWeek: calendar.NewBoundedInt(0), DayOfWeek: calendar.Tuesday}), false},
		{"nth without weekday", zoned(1, MonthlyByNthDayOfWeek{TimeOfDay: tod(9, 0), NthDayOfWeek: calendar.NewBoundedInt(1)}), false},

		{"yearly", zoned(1, Yearly{TimeOfDay: tod(9, 0), DayOfMonth: calendar.NewDayOfMonth(29), Month: calendar.February}), true},
		{"yearly month 13", zoned(1, Yearly{TimeOfDay: tod(9, 0), DayOfMonth: calendar.NewDayOfMonth(1), Month: calendar.NewMonth(13)}), false},
		{"yearly no day", zoned(1, Yearly{TimeOfDay: tod(9, 0), Month: calendar.March}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.IsValid())
			assert.Equal(t, tt.r.IsValid(), tt.r.Clone(Patch{}).IsValid())
			assert.Equal(t, tt.want, tt.r.Validity().Valid)
		})
	}
}

func TestValidityBreakdown(t *testing.T) {
	v := weekly().Validity()
	assert.False(t, v.Valid)
	assert.Equal(t, KindWeekly, v.TypeName)
	assert.True(t, v.ValidFrequency)
	assert.True(t, v.ValidTimeZone)
	assert.True(t, v.ValidTimeOfDay)
	assert.False(t, v.ValidKindFields)
}

func TestScenarios(t *testing.T) {
	t.Run("A valid minutely", func(t *testing.T) {
		r := Recurrence{Frequency: 1, TimesHasRun: 0, Rule: Minutely{}}
		assert.True(t, r.IsValid())
	})
	t.Run("B zero frequency", func(t *testing.T) {
		r := Recurrence{Frequency: 0, Rule: Minutely{}}
		assert.False(t, r.IsValid())
	})
	t.Run("C hour out of range", func(t *testing.T) {
		r := zoned(1, Weekly{TimeOfDay: tod(24, 0), DaysOfWeek: calendar.Week()})
		assert.False(t, r.IsValid())
	})
	t.Run("D lowering the count keeps the last days", func(t *testing.T) {
		r := weekly(1, 2, 3)
		r.TotalTimesToRun = calendar.NewBoundedInt(3)
		r.TimesHasRun = 2
		got := r.SetTotalTimesToRun(calendar.NewBoundedInt(2))
		assert.Equal(t, calendar.DaysOfWeekFromInts([]int{2, 3}), got.DaysOfWeek())
		assert.Equal(t, 0, got.TimesHasRun)
	})
	t.Run("E a single run forces frequency 1", func(t *testing.T) {
		r := zoned(7, Daily{TimeOfDay: tod(9, 0)})
		got := r.SetTotalTimesToRun(calendar.NewBoundedInt(1))
		assert.Equal(t, 1, got.Frequency)
	})
	t.Run("F hourly starts on the hour", func(t *testing.T) {
		got := New().BecomeHourly(Defaults{TimeZone: testZone})
		assert.Equal(t, calendar.NewMinute(0), got.MinuteOfHour())
	})
}

func TestCloneDoesNotShareState(t *testing.T) {
	r := weekly(1, 2)
	c := r.Clone(Patch{})
	assert.True(t, r.Equal(c))

	c.Rule.(Weekly).DaysOfWeek[0] = calendar.Sunday
	c.Rule.(Weekly).TimeOfDay.Hour = calendar.NewHour(3)
	assert.Equal(t, calendar.Monday, r.DaysOfWeek()[0])
	assert.Equal(t, calendar.NewHour(9), r.TimeOfDay().Hour)

	d := r.Clone(Patch{Frequency: Ref(3), TimeZone: Ref("Europe/Paris")})
	assert.Equal(t, 3, d.Frequency)
	assert.Equal(t, "Europe/Paris", d.TimeZone)
	assert.Equal(t, 1, r.Frequency)
}

func TestAccessorsMatchKind(t *testing.T) {
	y := zoned(1, Yearly{TimeOfDay: tod(8, 15), DayOfMonth: calendar.NewDayOfMonth(4), Month: calendar.July})
	assert.Equal(t, calendar.July, y.Month())
	assert.Equal(t, calendar.NewDayOfMonth(4), y.DayOfMonth())
	assert.False(t, y.MinuteOfHour().IsPresent())
	assert.False(t, y.NthDayOfWeek().IsPresent())
	assert.Nil(t, y.DaysOfWeek())

	h := zoned(1, Hourly{MinuteOfHour: calendar.NewMinute(20)})
	assert.Nil(t, h.TimeOfDay())
	assert.Equal(t, calendar.NewMinute(20), h.MinuteOfHour())
}

func TestEqualIgnoresDisplayFields(t *testing.T) {
	a := weekly(1, 5)
	b := a.Clone(Patch{DisplayString: Ref("Every Monday and Friday"), TimeZoneName: Ref("Pacific Time")})
	assert.True(t, a.Equal(b))
	assert.Empty(t, cmp.Diff(a.ForEqualityComparison(), b.ForEqualityComparison()))

	assert.False(t, a.Equal(weekly(5, 1)), "day order is significant")
	assert.False(t, a.Equal(a.Clone(Patch{TimeZone: Ref("UTC")})))
	assert.False(t, a.Equal(a.BecomeDaily(Defaults{})))
}
