package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brooklynZone() Zone {
	return Zone{
		ID:   "bk-1",
		Name: "Brooklyn North",
		ZIPs: []string{"11201", "11205", "11211"},
		Polygon: []Point{
			{Lat: 40.68, Lng: -74.00},
			{Lat: 40.68, Lng: -73.92},
			{Lat: 40.74, Lng: -73.92},
			{Lat: 40.74, Lng: -74.00},
		},
	}
}

func TestContainsZIP(t *testing.T) {
	z := brooklynZone()
	assert.True(t, z.ContainsZIP("11211"))
	assert.False(t, z.ContainsZIP("10001"))
}

func TestContainsPoint(t *testing.T) {
	z := brooklynZone()
	assert.True(t, z.ContainsPoint(40.71, -73.95))
	assert.False(t, z.ContainsPoint(40.60, -73.95)) // south of the box
	assert.False(t, z.ContainsPoint(40.71, -73.80)) // east of the box

	degenerate := Zone{Polygon: []Point{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}}
	assert.False(t, degenerate.ContainsPoint(1.5, 1.5))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]Zone{brooklynZone()})

	// ZIP membership wins even without coordinates
	z, ok := m.Match("11201", 0, 0)
	require.True(t, ok)
	assert.Equal(t, "bk-1", z.ID)

	// unlisted ZIP falls through to the polygon
	z, ok = m.Match("11299", 40.71, -73.95)
	require.True(t, ok)
	assert.Equal(t, "bk-1", z.ID)

	_, ok = m.Match("10001", 40.60, -73.80)
	assert.False(t, ok)

	_, ok = m.Match("", 0, 0)
	assert.False(t, ok)
}
