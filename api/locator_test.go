package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michaelbeaumont/mayastor/api"
)

func TestParseLocator(t *testing.T) {
	l, err := api.ParseLocator("pool://hostA/poolX")
	assert.NoError(t, err)
	assert.Equal(t, api.Locator{Scheme: "pool", Host: "hostA", Path: "poolX"}, l)

	l, err = api.ParseLocator("nvmt://hostB")
	assert.NoError(t, err)
	assert.Equal(t, api.Locator{Scheme: "nvmt", Host: "hostB", Path: ""}, l)
}

func TestParseLocatorMalformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-locator", "pool:///poolX", "://host/p"} {
		_, err := api.ParseLocator(raw)
		assert.Error(t, err, raw)
		assert.Equal(t, api.ErrMalformedLocator, api.KindOf(err), raw)
		assert.True(t, api.IsValidation(err), raw)
	}
}

func TestLocatorExpect(t *testing.T) {
	l, err := api.ParseLocator("pool://hostA/poolX")
	assert.NoError(t, err)
	assert.NoError(t, l.Expect(api.SchemePool))

	err = l.Expect(api.SchemeNexus)
	assert.Error(t, err)
	assert.Equal(t, api.ErrSchemeMismatch, api.KindOf(err))
}

func TestParsePoolLocator(t *testing.T) {
	host, pool, err := api.ParsePoolLocator("pool://hostA/poolX")
	assert.NoError(t, err)
	assert.Equal(t, "hostA", host)
	assert.Equal(t, "poolX", pool)

	_, _, err = api.ParsePoolLocator("nvmt://hostA")
	assert.Equal(t, api.ErrSchemeMismatch, api.KindOf(err))

	_, _, err = api.ParsePoolLocator("pool://hostA")
	assert.Equal(t, api.ErrMalformedLocator, api.KindOf(err))
}

func TestParseNexusLocator(t *testing.T) {
	host, err := api.ParseNexusLocator("nvmt://hostB")
	assert.NoError(t, err)
	assert.Equal(t, "hostB", host)

	_, err = api.ParseNexusLocator("pool://hostB/p")
	assert.Equal(t, api.ErrSchemeMismatch, api.KindOf(err))
}
