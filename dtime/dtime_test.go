package dtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct{ y, m, d int }{
		{1900, 1, 1},
		{1970, 1, 1},
		{2000, 2, 29}, // century leap year
		{2001, 12, 31},
		{2023, 3, 1},
		{2100, 2, 28}, // 2100 is not a leap year
		{2400, 2, 29},
	}
	for _, c := range cases {
		dt := EncodeDate(c.y, c.m, c.d)
		var y, m, d int
		DecodeDate(dt, &y, &m, &d)
		assert.Equal(t, [3]int{c.y, c.m, c.d}, [3]int{y, m, d})
	}
}

func TestKnownEpochValues(t *testing.T) {
	// day 0 is 1899-12-30, day 2 is 1900-01-01
	assert.Equal(t, 0., EncodeDate(1899, 12, 30))
	assert.Equal(t, 2., EncodeDate(1900, 1, 1))
	assert.Equal(t, 36526., EncodeDate(2000, 1, 1))
}

func TestInvalidDates(t *testing.T) {
	assert.Equal(t, 0., EncodeDate(2023, 2, 29))
	assert.Equal(t, 0., EncodeDate(2023, 13, 1))
	assert.Equal(t, 0., EncodeDate(0, 1, 1))
}

func TestTimeRoundTrip(t *testing.T) {
	dt := EncodeDate(2010, 6, 15) + EncodeTime(13, 45, 30)
	var y, mo, d, h, mi, s int
	DecodeDateTime(dt, &y, &mo, &d, &h, &mi, &s)
	assert.Equal(t, [6]int{2010, 6, 15, 13, 45, 30}, [6]int{y, mo, d, h, mi, s})
}

func TestDayOfWeek(t *testing.T) {
	// 2000-01-01 was a Saturday
	assert.Equal(t, 7, DayOfWeek(EncodeDate(2000, 1, 1)))
	// 2023-03-06 was a Monday
	assert.Equal(t, 2, DayOfWeek(EncodeDate(2023, 3, 6)))
}

func TestAddSecondsMsecConversions(t *testing.T) {
	d0 := EncodeDate(2020, 1, 1)
	d1 := AddSeconds(d0, 3600)
	var h, m, s int
	DecodeTime(d1, &h, &m, &s)
	assert.Equal(t, 1, h)
	assert.Equal(t, 0.5, MsecToDays(43200000))
	assert.Equal(t, 86400000., DaysToMsec(1))
}
