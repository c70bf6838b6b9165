package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/datapole/go-etl/internal/common/rawfield"
	"github.com/datapole/go-etl/internal/domain"
)

// deptLabelRe matches the "75 - Paris" label shape used by the national
// job board: department code, dash, city name.
var deptLabelRe = regexp.MustCompile(`^(\d{1,2})\s*-\s*(.+)$`)

// parentheticalRe strips qualifiers such as "Suisse (Frontalier)".
var parentheticalRe = regexp.MustCompile(`^([^(]+)\s*\([^)]*\)\s*$`)

// labelAliases maps unaccented or qualified label variants to their
// canonical spelling before any list lookup.
var labelAliases = map[string]string{
	"Ile-de-France":       "Île-de-France",
	"Suisse (Frontalier)": "Suisse",
	"Rhone-Alpes":         "Rhône-Alpes",
	"Etats-Unis":          "États-Unis",
	"Egypte":              "Égypte",
	"Perou":               "Pérou",
}

var knownCountries = map[string]bool{
	"France": true, "Italie": true, "Espagne": true, "Allemagne": true,
	"Belgique": true, "Suisse": true, "Japon": true, "Royaume-Uni": true,
	"Portugal": true, "Luxembourg": true, "Pays-Bas": true, "Autriche": true,
	"Danemark": true, "Suède": true, "Finlande": true, "Norvège": true,
	"Irlande": true, "Grèce": true, "Pologne": true, "République tchèque": true,
	"Hongrie": true, "Roumanie": true, "Bulgarie": true, "Croatie": true,
	"Slovénie": true, "Slovaquie": true, "Estonie": true, "Lettonie": true,
	"Lituanie": true, "Chypre": true, "Malte": true, "Canada": true,
	"États-Unis": true, "Mexique": true, "Brésil": true, "Argentine": true,
	"Chili": true, "Colombie": true, "Pérou": true, "Venezuela": true,
	"Chine": true, "Inde": true, "Indonésie": true, "Corée du Sud": true,
	"Australie": true, "Nouvelle-Zélande": true, "Afrique du Sud": true,
	"Maroc": true, "Tunisie": true, "Algérie": true, "Égypte": true,
}

var knownRegions = map[string]bool{
	"Île-de-France": true, "Guadeloupe": true, "Martinique": true,
	"Guyane": true, "La Réunion": true, "Mayotte": true,
	"Nouvelle-Aquitaine": true, "Occitanie": true,
	"Provence-Alpes-Côte d'Azur": true, "Grand Est": true,
	"Hauts-de-France": true, "Normandie": true, "Bretagne": true,
	"Pays de la Loire": true, "Centre-Val de Loire": true,
	"Bourgogne-Franche-Comté": true, "Auvergne-Rhône-Alpes": true,
	"Corse": true, "Rhône-Alpes": true,
}

// NormalizeLocation builds a structured location from the raw field.
// Object inputs carry libelle/commune/codePostal keys; plain text is
// treated as a bare label. Country falls back to homeCountry whenever the
// label does not name a foreign country.
func NormalizeLocation(field rawfield.Field, homeCountry string) domain.Location {
	loc := domain.Location{Country: homeCountry}

	switch field.Kind {
	case rawfield.KindMissing:
		return loc
	case rawfield.KindObject, rawfield.KindEncodedObject:
		label := field.Get("libelle")
		loc.Label = label
		splitDeptLabel(label, &loc)
		if commune := field.Get("commune"); loc.City == "" && commune != "" && !inseeLike(commune) {
			loc.City = commune
		}
		loc.PostalCode = field.Get("codePostal")
		applyPostalCode(loc.PostalCode, &loc)
		classifyLabel(label, homeCountry, &loc)
	default:
		label := strings.TrimSpace(field.Text)
		loc.Label = label
		splitDeptLabel(label, &loc)
		classifyLabel(label, homeCountry, &loc)
	}
	return loc
}

// splitDeptLabel extracts city and department from a "CODE - City" label.
func splitDeptLabel(label string, loc *domain.Location) {
	parts := strings.SplitN(label, " - ", 2)
	if len(parts) != 2 {
		// Tolerate tighter spacing like "75- Paris".
		if m := deptLabelRe.FindStringSubmatch(label); m != nil {
			loc.Department = padDepartment(m[1])
			loc.City = strings.TrimSpace(m[2])
		}
		return
	}
	loc.City = strings.TrimSpace(parts[1])
	code := strings.TrimSpace(parts[0])
	if allDigits(code) || (len(code) == 2 && isDigit(code[0])) {
		loc.Department = padDepartment(code)
	}
}

// applyPostalCode derives the department from the postal code, which
// overrides any label-derived code. Corsican codes split into 2A/2B by
// postal sub-range.
func applyPostalCode(postal string, loc *domain.Location) {
	if len(postal) < 2 {
		return
	}
	loc.Department = postal[:2]
	if strings.HasPrefix(postal, "20") {
		if n, err := strconv.Atoi(postal); err == nil {
			if n >= 20200 && n < 20620 {
				loc.Department = "2A"
			} else {
				loc.Department = "2B"
			}
		}
	}
}

// classifyLabel resolves country and, when nothing else produced a city,
// promotes region or plain-town labels into the city field. Foreign
// country names never become cities.
func classifyLabel(label, homeCountry string, loc *domain.Location) {
	name := canonicalLabel(label)
	switch {
	case name == homeCountry:
		// National posting, nothing finer to extract.
	case knownCountries[name]:
		loc.Country = name
	case knownRegions[name]:
		loc.Region = name
		if loc.City == "" {
			loc.City = name
		}
	case name != "" && !isDigit(name[0]) && !strings.Contains(name, " - "):
		if loc.City == "" {
			loc.City = name
		}
	}
}

// canonicalLabel applies alias spelling and strips a trailing
// parenthetical qualifier.
func canonicalLabel(label string) string {
	label = strings.TrimSpace(label)
	if alias, ok := labelAliases[label]; ok {
		label = alias
	}
	if m := parentheticalRe.FindStringSubmatch(label); m != nil {
		if base := strings.TrimSpace(m[1]); base != "" {
			label = base
		}
	}
	if alias, ok := labelAliases[label]; ok {
		label = alias
	}
	return label
}

// inseeLike reports whether a commune value is an INSEE code rather than
// a town name.
func inseeLike(commune string) bool {
	if allDigits(commune) {
		return true
	}
	return len(commune) == 5 && isDigit(commune[0]) && isDigit(commune[1])
}

func padDepartment(code string) string {
	if len(code) == 1 {
		return "0" + code
	}
	return code
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
