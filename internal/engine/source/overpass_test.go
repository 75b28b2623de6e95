package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/leadtap/internal/model"
)

var testTile = model.Tile{
	Region: model.Region{South: 50, West: 12, North: 51, East: 13},
}

func overpassAt(url string) *Overpass {
	return NewOverpass(OverpassConfig{Endpoint: url})
}

func TestOverpassNormalizesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		query := r.Form.Get("data")
		assert.Contains(t, query, `["shop"="bakery"]`)
		assert.Contains(t, query, "(50,12,51,13)")

		w.Write([]byte(`{"elements":[
			{"type":"node","id":101,"lat":50.5,"lon":12.5,"tags":{
				"name":"Bäckerei Müller","shop":"bakery",
				"contact:website":"https://baeckerei-mueller.de",
				"phone":"+49 351 123456",
				"addr:street":"Hauptstraße","addr:housenumber":"1",
				"addr:postcode":"01067","addr:city":"Dresden"}},
			{"type":"way","id":202,"center":{"lat":50.6,"lon":12.6},"tags":{
				"name":"Stadtcafé","email":"hallo@stadtcafe.de"}},
			{"type":"node","id":303,"lat":50.7,"lon":12.7,"tags":{"shop":"bakery"}}
		]}`))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile,
		model.FilterGroup{{Key: "shop", Value: "bakery"}}, 10)

	require.False(t, res.RateLimited)
	require.Len(t, res.Places, 2, "the unnamed element must be dropped")

	first := res.Places[0]
	assert.Equal(t, "overpass", first.SourceName)
	assert.Equal(t, "node/101", first.SourceRef)
	assert.Equal(t, "Bäckerei Müller", first.Name)
	assert.Equal(t, "https://baeckerei-mueller.de", first.Website)
	assert.Equal(t, "+49 351 123456", first.Phone)
	assert.Equal(t, "Hauptstraße 1, 01067, Dresden", first.Address)
	assert.InDelta(t, 50.5, first.Lat, 1e-9)

	second := res.Places[1]
	assert.Equal(t, "way/202", second.SourceRef)
	assert.InDelta(t, 50.6, second.Lat, 1e-9, "ways use their center coordinates")
	assert.Equal(t, "hallo@stadtcafe.de", second.Email)
}

func TestOverpassLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"tags":{"name":"A"}},
			{"type":"node","id":2,"tags":{"name":"B"}},
			{"type":"node","id":3,"tags":{"name":"C"}}
		]}`))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 2)
	assert.Len(t, res.Places, 2)
}

func TestOverpassRateLimitStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 10)
	assert.True(t, res.RateLimited)
	assert.Empty(t, res.Places)
}

func TestOverpassRateLimitBodyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("error: rate_limited, please be nice to the server"))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 10)
	assert.True(t, res.RateLimited)
}

func TestOverpassRateLimitRemark(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements":[],"remark":"runtime error: load too high"}`))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 10)
	assert.True(t, res.RateLimited)
}

func TestOverpassServerErrorIsEmptyNotRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream broke"))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 10)
	assert.False(t, res.RateLimited)
	assert.Empty(t, res.Places)
}

func TestOverpassMalformedPayloadIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	res := overpassAt(srv.URL).SearchByRegion(context.Background(), testTile, nil, 10)
	assert.False(t, res.RateLimited)
	assert.Empty(t, res.Places)
}

func TestBuildOverpassQLBareKey(t *testing.T) {
	q := buildOverpassQL(testTile.Region, model.FilterGroup{{Key: "craft"}}, 50)
	assert.Contains(t, q, `nwr["craft"]`)
	assert.Contains(t, q, "out center tags 50;")
}
