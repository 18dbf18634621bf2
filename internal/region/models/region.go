package models

// Location is a parcel's position in the administrative hierarchy.
type Location struct {
	County       string `json:"county"`
	SubCounty    string `json:"sub_county"`
	Constituency string `json:"constituency"`
	Ward         string `json:"ward"`
}

// County is one administrative subtree: county → sub-county → constituency → ward.
// The hierarchy is reference data, loaded read-only.
type County struct {
	Name        string      `json:"name"`
	Code        string      `json:"code"`
	SubCounties []SubCounty `json:"sub_counties"`
}

type SubCounty struct {
	Name           string         `json:"name"`
	Constituencies []Constituency `json:"constituencies"`
}

type Constituency struct {
	Name  string   `json:"name"`
	Wards []string `json:"wards"`
}

// Contains reports whether the location resolves inside this county subtree.
func (c *County) Contains(loc Location) bool {
	if loc.County != c.Name {
		return false
	}
	for _, sc := range c.SubCounties {
		if sc.Name != loc.SubCounty {
			continue
		}
		for _, con := range sc.Constituencies {
			if con.Name != loc.Constituency {
				continue
			}
			for _, ward := range con.Wards {
				if ward == loc.Ward {
					return true
				}
			}
		}
	}
	return false
}
