package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFillsOnlyEmptyFields(t *testing.T) {
	p := Place{Name: "Bakery", Phone: "original", Website: "bakery.example"}
	p.Merge(Place{Phone: "scraped", Email: "info@bakery.example", Address: "Street 1"})

	assert.Equal(t, "original", p.Phone, "populated fields are never overwritten")
	assert.Equal(t, "info@bakery.example", p.Email)
	assert.Equal(t, "Street 1", p.Address)
	assert.Equal(t, "bakery.example", p.Website)
}

func TestMergeNeverErasesWithEmpty(t *testing.T) {
	p := Place{Name: "Bakery", Email: "kept@bakery.example", Lat: 51, Lng: 13}
	p.Merge(Place{})

	assert.Equal(t, "kept@bakery.example", p.Email)
	assert.Equal(t, 51.0, p.Lat)
}

func TestMergeLocation(t *testing.T) {
	p := Place{Name: "X"}
	p.Merge(Place{Lat: 51, Lng: 13})
	assert.True(t, p.HasLocation())

	p.Merge(Place{Lat: 1, Lng: 1})
	assert.Equal(t, 51.0, p.Lat, "an existing location wins")
}

func TestRegionValid(t *testing.T) {
	assert.True(t, Region{South: 1, West: 1, North: 2, East: 2}.Valid())
	assert.False(t, Region{South: 2, West: 1, North: 1, East: 2}.Valid())
	assert.False(t, Region{}.Valid())
}

func TestParseFilters(t *testing.T) {
	group := ParseFilters(" shop=bakery, craft ,, amenity=cafe ")

	assert.Equal(t, FilterGroup{
		{Key: "shop", Value: "bakery"},
		{Key: "craft"},
		{Key: "amenity", Value: "cafe"},
	}, group)
	assert.Equal(t, "shop=bakery", group[0].String())
	assert.Equal(t, "craft", group[1].String())
}
