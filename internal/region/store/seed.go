package store

import "ardhi/internal/region/models"

// DevCounties is a small slice of the national hierarchy for running without
// the reference dataset loaded. Production deployments read the full table
// from Postgres.
func DevCounties() []*models.County {
	return []*models.County{
		{
			Name: "Nairobi", Code: "NAI",
			SubCounties: []models.SubCounty{
				{
					Name: "Westlands",
					Constituencies: []models.Constituency{
						{Name: "Westlands", Wards: []string{"Parklands", "Kangemi", "Mountain View"}},
					},
				},
				{
					Name: "Embakasi",
					Constituencies: []models.Constituency{
						{Name: "Embakasi East", Wards: []string{"Utawala", "Mihango"}},
					},
				},
			},
		},
		{
			Name: "Mombasa", Code: "MSA",
			SubCounties: []models.SubCounty{
				{
					Name: "Mvita",
					Constituencies: []models.Constituency{
						{Name: "Mvita", Wards: []string{"Tononoka", "Majengo"}},
					},
				},
			},
		},
		{
			Name: "Kisumu", Code: "KSM",
			SubCounties: []models.SubCounty{
				{
					Name: "Kisumu Central",
					Constituencies: []models.Constituency{
						{Name: "Kisumu Central", Wards: []string{"Market Milimani", "Shaurimoyo Kaloleni"}},
					},
				},
			},
		},
	}
}
