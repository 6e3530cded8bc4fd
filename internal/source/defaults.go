package source

// DefaultDescriptors returns the built-in council list. Councils that only
// offer manual downloads are listed disabled so users can see why.
//
// Per-council precedence chains (tried before the adapter defaults):
//
//	camden      application_number / site_address / proposal / applicant_name / status / date_received / url
//	bristol     applicationnumber / siteaddress / proposaldescription / applicantname / status / dateregistered
//	birmingham  application_number / location / proposal / applicant / status / received_date
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name:    "london",
			Title:   "London (All Boroughs)",
			Kind:    KindLondon,
			URL:     "https://planningdata.london.gov.uk/api-guest/applications",
			URLs:    []string{"https://www.london.gov.uk/programmes-strategies/planning/digital-planning/planning-london-datahub/planning-london-datahub-api"},
			Enabled: true,
			Link:    "https://planningdata.london.gov.uk/planning-application/{reference}",
		},
		{
			Name:      "camden",
			Title:     "Camden",
			Kind:      KindOpenDataSoft,
			URL:       "https://opendata.camden.gov.uk/api/explore/v2.1/catalog/datasets/planning-applications/records",
			Enabled:   true,
			DateField: "date_received",
			Fields: Mapping{
				Reference:   []string{"application_number"},
				Address:     []string{"site_address"},
				Description: []string{"proposal"},
				Applicant:   []string{"applicant_name"},
				Status:      []string{"status"},
				Date:        []string{"date_received"},
				Link:        []string{"url"},
			},
		},
		{
			Name:    "bristol",
			Title:   "Bristol",
			Kind:    KindOpenDataSoft,
			URL:     "https://opendata.bristol.gov.uk/api/explore/v2.1/catalog/datasets/planning-applications/records",
			Enabled: true,
			Fields: Mapping{
				Reference:   []string{"applicationnumber"},
				Address:     []string{"siteaddress"},
				Description: []string{"proposaldescription"},
				Applicant:   []string{"applicantname"},
				Status:      []string{"status"},
				Date:        []string{"dateregistered"},
			},
		},
		{
			Name:       "leeds",
			Title:      "Leeds",
			Kind:       KindCKAN,
			URL:        "https://datamillnorth.org/api/3/action/datastore_search",
			ResourceID: "planning-applications",
			Enabled:    true,
		},
		{
			Name:    "birmingham",
			Title:   "Birmingham",
			Kind:    KindOpenDataSoft,
			URL:     "https://data.birmingham.gov.uk/api/explore/v2.1/catalog/datasets/planning-application/records",
			Enabled: true,
			Fields: Mapping{
				Reference:   []string{"application_number"},
				Address:     []string{"location"},
				Description: []string{"proposal"},
				Applicant:   []string{"applicant"},
				Status:      []string{"status"},
				Date:        []string{"received_date"},
			},
		},
		{
			Name:  "manchester",
			Title: "Manchester",
			Kind:  KindManual,
			URL:   "https://www.manchester.gov.uk/open/downloads/file/3601/planning_applications",
			Note:  "Requires manual download",
		},
		{
			Name:  "liverpool",
			Title: "Liverpool",
			Kind:  KindManual,
			URL:   "https://data.gov.uk/dataset/liverpool-planning-applications",
			Note:  "Requires manual download",
		},
		{
			Name:  "newcastle",
			Title: "Newcastle",
			Kind:  KindManual,
			URL:   "https://www.newcastle.gov.uk/planning-and-buildings/planning-applications",
			Note:  "No public API",
		},
	}
}
