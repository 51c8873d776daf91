package details

import (
	"context"
	"sync"

	"github.com/kelvins/geocoder"
)

// The geocoder library keeps its key in a package variable.
var setKeyOnce sync.Once

// GoogleGeocoder reverse-geocodes through the Google Maps Geocoding API.
type GoogleGeocoder struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder configures the Google key. Only the first key wins.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	setKeyOnce.Do(func() { geocoder.ApiKey = apiKey })
	return &GoogleGeocoder{reverse: geocoder.GeocodingReverse}
}

// ReverseGeocode returns the formatted address of the best match.
// The library call cannot be canceled; ctx only bounds how long we wait.
func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	type result struct {
		addr string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		if err != nil || len(addrs) == 0 {
			ch <- result{err: err}
			return
		}
		ch <- result{addr: addrs[0].FormattedAddress}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.addr, r.err
	}
}
