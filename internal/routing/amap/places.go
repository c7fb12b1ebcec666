package amap

import (
	"context"
	"net/url"
	"strconv"

	"github.com/triproute/triproute/internal/routing"
)

const (
	pathGeocode  = "/v3/geocode/geo"
	pathPlaces   = "/v3/place/text"
	pathDistrict = "/v3/config/district"
)

// Geocode resolves an address to its best match. It returns nil without an
// error when AMap answers successfully but knows no such address.
func (c *Client) Geocode(ctx context.Context, address, city string) (*routing.ResolvedLocation, error) {
	params := url.Values{}
	params.Set("address", address)
	if city != "" {
		params.Set("city", city)
	}

	body, err := c.get(ctx, "geocode", pathGeocode, params)
	if err != nil {
		return nil, err
	}

	hits := body.objects("geocodes")
	if len(hits) == 0 {
		return nil, nil
	}
	hit := hits[0]

	return &routing.ResolvedLocation{
		Query:            address,
		Coordinate:       coordinate(hit.str("location")),
		FormattedAddress: hit.str("formatted_address"),
		// Municipalities report an empty city and carry the name in province.
		City:      hit.str("city", "province"),
		AdminCode: hit.str("adcode"),
		CityCode:  hit.str("citycode"),
	}, nil
}

// SearchPlaces runs a keyword POI search, returning at most limit places.
func (c *Client) SearchPlaces(ctx context.Context, keywords, city string, limit int) ([]routing.Place, error) {
	if limit <= 0 {
		limit = routing.DefaultPlaceLimit
	}

	params := url.Values{}
	params.Set("keywords", keywords)
	if city != "" {
		params.Set("city", city)
	}
	params.Set("offset", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("extensions", "base")

	body, err := c.get(ctx, "place_search", pathPlaces, params)
	if err != nil {
		return nil, err
	}

	pois := body.objects("pois")
	places := make([]routing.Place, 0, min(len(pois), limit))
	for _, poi := range pois {
		if len(places) == limit {
			break
		}
		places = append(places, routing.Place{
			Name:       poi.str("name"),
			Address:    poi.str("address"),
			Coordinate: coordinate(poi.str("location")),
			City:       poi.str("cityname"),
			AdminCode:  poi.str("adcode"),
			Type:       poi.str("type"),
		})
	}
	return places, nil
}

// LookupDistrict returns the administrative code for a city or district name,
// or "" when AMap knows none.
func (c *Client) LookupDistrict(ctx context.Context, keywords string) (string, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("subdistrict", "0")

	body, err := c.get(ctx, "district", pathDistrict, params)
	if err != nil {
		return "", err
	}

	districts := body.objects("districts")
	if len(districts) == 0 {
		return "", nil
	}
	return districts[0].str("adcode"), nil
}
