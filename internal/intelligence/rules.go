package intelligence

import "github.com/a3tai/mcp-notam-briefing/internal/notam"

// getDefaultRules returns the default set of classification rules. A notice
// matching none of them above the confidence threshold is IRR.
func getDefaultRules() []ClassificationRule {
	return []ClassificationRule{
		// Runway Rules
		{
			Name:          "runway_qcode",
			Category:      notam.CategoryRunway,
			QCodePrefixes: []string{"QMR", "QLR", "QLL", "QLC", "QLE", "QLT"},
			Weight:        1.0,
			MinConfidence: 0.5,
			Priority:      1,
			Enabled:       true,
			Description:   "Runway subject codes in item Q",
		},
		{
			Name:     "runway_keywords",
			Category: notam.CategoryRunway,
			Keywords: []string{
				"RWY", "RUNWAY", "THR", "THRESHOLD", "TORA", "TODA", "ASDA", "LDA",
				"PAPI", "VASIS", "RCL", "REDL", "TDZ",
			},
			KeywordPatterns: []string{
				`\bRWY\s*\d{2}[LRC]?(/\d{2}[LRC]?)?\b`,
				`\bDISPLACED\s+THR\b`,
			},
			Weight:        0.9,
			MinConfidence: 0.1,
			Priority:      1,
			Enabled:       true,
			Description:   "Runway closures, restrictions and runway lighting",
		},

		// Navaid Rules
		{
			Name:          "navaid_qcode",
			Category:      notam.CategoryNavaid,
			QCodePrefixes: []string{"QI", "QN", "QG"},
			Weight:        1.0,
			MinConfidence: 0.5,
			Priority:      2,
			Enabled:       true,
			Description:   "Instrument landing and navigation subject codes in item Q",
		},
		{
			Name:     "navaid_keywords",
			Category: notam.CategoryNavaid,
			Keywords: []string{
				"ILS", "LOC", "LLZ", "GP", "GLIDE PATH", "VOR", "DVOR", "DME",
				"NDB", "TACAN", "GNSS", "GPS", "RNAV", "RNP", "MLS",
			},
			KeywordPatterns: []string{
				`\b(ILS|VOR|DME|NDB|LOC)\b.{0,40}\b(U/S|UNSERVICEABLE|NOT AVBL|OUT OF SERVICE)\b`,
			},
			Weight:        0.9,
			MinConfidence: 0.1,
			Priority:      2,
			Enabled:       true,
			Description:   "Navigation aid outages",
		},

		// Taxiway Rules
		{
			Name:          "taxiway_qcode",
			Category:      notam.CategoryTaxiway,
			QCodePrefixes: []string{"QMX", "QMA", "QMN", "QMP", "QLX"},
			Weight:        1.0,
			MinConfidence: 0.5,
			Priority:      3,
			Enabled:       true,
			Description:   "Taxiway and apron subject codes in item Q",
		},
		{
			Name:     "taxiway_keywords",
			Category: notam.CategoryTaxiway,
			Keywords: []string{
				"TWY", "TAXIWAY", "APRON", "APN", "STAND", "ACFT STAND", "HOLDING POINT",
			},
			KeywordPatterns: []string{
				`\bTWY\s+[A-Z]\d?\b`,
			},
			Weight:        0.8,
			MinConfidence: 0.1,
			Priority:      3,
			Enabled:       true,
			Description:   "Taxiway closures and apron restrictions",
		},

		// Airspace Rules
		{
			Name:          "airspace_qcode",
			Category:      notam.CategoryAirspace,
			QCodePrefixes: []string{"QR", "QA", "QW"},
			Weight:        1.0,
			MinConfidence: 0.5,
			Priority:      4,
			Enabled:       true,
			Description:   "Airspace organisation, restriction and warning subject codes",
		},
		{
			Name:     "airspace_keywords",
			Category: notam.CategoryAirspace,
			Keywords: []string{
				"AIRSPACE", "TRA", "TSA", "DANGER AREA", "RESTRICTED AREA",
				"PROHIBITED", "PROHIBITED AREA", "CTR", "TMA", "UAS", "PJE", "FL",
			},
			KeywordPatterns: []string{
				`\b[A-Z]{2}[DRP]\d{2,4}[A-Z]?\b`, // EGD123, LFR45A
				`\bSFC\s*-\s*(FL\d{3}|\d+\s*FT)\b`,
			},
			Weight:        0.8,
			MinConfidence: 0.1,
			Priority:      4,
			Enabled:       true,
			Description:   "Airspace restrictions, danger, prohibited and restricted areas",
		},

		// Obstacle Rules
		{
			Name:          "obstacle_qcode",
			Category:      notam.CategoryObstacle,
			QCodePrefixes: []string{"QOB", "QOL"},
			Weight:        1.0,
			MinConfidence: 0.5,
			Priority:      5,
			Enabled:       true,
			Description:   "Obstacle subject codes in item Q",
		},
		{
			Name:     "obstacle_keywords",
			Category: notam.CategoryObstacle,
			Keywords: []string{
				"OBST", "OBSTACLE", "CRANE", "MAST", "TOWER", "WIND TURBINE", "UNLIT",
			},
			KeywordPatterns: []string{
				`\b(CRANE|OBST|MAST)\b.{0,60}\b\d+\s*FT\s+(AGL|AMSL)\b`,
			},
			Weight:        0.8,
			MinConfidence: 0.1,
			Priority:      5,
			Enabled:       true,
			Description:   "Obstacles, cranes and unlit towers",
		},
	}
}
