package details

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Providers report countries by name ("United States", "India") and
// sometimes by code ("FR", "USA"). Codes go straight to language.ParseRegion.
var countryRegions = map[string]string{
	"united states":            "US",
	"united states of america": "US",
	"india":                    "IN",
	"united kingdom":           "GB",
	"england":                  "GB",
	"canada":                   "CA",
	"australia":                "AU",
	"france":                   "FR",
	"germany":                  "DE",
	"spain":                    "ES",
	"italy":                    "IT",
	"netherlands":              "NL",
	"japan":                    "JP",
	"china":                    "CN",
	"brazil":                   "BR",
	"mexico":                   "MX",
	"uruguay":                  "UY",
	"argentina":                "AR",
	"south africa":             "ZA",
	"switzerland":              "CH",
	"russia":                   "RU",
	"singapore":                "SG",
	"united arab emirates":     "AE",
}

// Symbols are rendered with English CLDR data, narrow form ("$" rather
// than "US$").
var symbolPrinter = message.NewPrinter(language.English)

func regionOf(country string) (language.Region, bool) {
	c := strings.TrimSpace(country)
	if code, ok := countryRegions[strings.ToLower(c)]; ok {
		c = code
	}
	r, err := language.ParseRegion(c)
	if err != nil {
		return language.Region{}, false
	}
	return r, true
}

// currencyFor returns the tender of the country, or zero if unknown.
func currencyFor(country string) Currency {
	r, ok := regionOf(country)
	if !ok {
		return Currency{}
	}
	unit, ok := currency.FromRegion(r)
	if !ok {
		return Currency{}
	}
	return Currency{
		Name:   unit.String(),
		Symbol: symbolPrinter.Sprint(currency.NarrowSymbol(unit)),
	}
}
