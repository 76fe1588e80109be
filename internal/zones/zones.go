package zones

// Delivery areas are admin-curated: a handful of zones, each a ZIP
// allow-list plus an optional polygon for addresses whose ZIP is not listed.

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Zone struct {
	ID      string
	Name    string
	ZIPs    []string
	Polygon []Point
}

func (z *Zone) ContainsZIP(zip string) bool {
	for _, v := range z.ZIPs {
		if v == zip {
			return true
		}
	}
	return false
}

// ContainsPoint is a standard ray cast; the polygons are small (admin-drawn,
// a dozen vertices at most) so no index is needed.
func (z *Zone) ContainsPoint(lat, lng float64) bool {
	n := len(z.Polygon)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := z.Polygon[i], z.Polygon[j]
		if (pi.Lat > lat) != (pj.Lat > lat) &&
			lng < (pj.Lng-pi.Lng)*(lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lng {
			inside = !inside
		}
		j = i
	}
	return inside
}

type Matcher struct{ zones []Zone }

func NewMatcher(zs []Zone) *Matcher { return &Matcher{zones: zs} }

// Match returns the first zone covering the address: ZIP membership first,
// then polygon containment when coordinates are present.
func (m *Matcher) Match(zip string, lat, lng float64) (*Zone, bool) {
	for i := range m.zones {
		if zip != "" && m.zones[i].ContainsZIP(zip) {
			return &m.zones[i], true
		}
	}
	if lat != 0 || lng != 0 {
		for i := range m.zones {
			if m.zones[i].ContainsPoint(lat, lng) {
				return &m.zones[i], true
			}
		}
	}
	return nil, false
}
