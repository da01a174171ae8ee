package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUnitNameGrammar(t *testing.T) {
	t.Parallel()

	cases := []struct {
		host string
		want string
	}{
		{host: "os-widgets.example", want: "widgets-main"},
		{host: "os-widgets-main.example", want: "widgets-main"},
		{host: "os-widgets-dev.example", want: "widgets-development"},
		{host: "os-widgets-development.example", want: "widgets-development"},
		{host: "os-widgets-fix42.example", want: "widgets-fix42"},
		{host: "os-gadgets", want: "gadgets-main"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveUnitName(tc.host, "os-"), "host %s", tc.host)
	}
}

func TestResolveUnitNameIsPure(t *testing.T) {
	t.Parallel()

	// Same input, same output, every time; no I/O is possible by
	// construction, this guards against accidental statefulness.
	for i := 0; i < 100; i++ {
		assert.Equal(t, "widgets-main", ResolveUnitName("os-widgets.example", "os-"))
	}
}

func TestResolveUnitNamePanicsOnMalformedInput(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { ResolveUnitName("pay.example", "os-") })
	assert.Panics(t, func() { ResolveUnitName("os-.example", "os-") })
}

func TestIsPluginHost(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPluginHost("os-widgets.example", "os-"))
	assert.False(t, IsPluginHost("pay.example", "os-"))
	assert.False(t, IsPluginHost("os-.example", "os-"))
	assert.False(t, IsPluginHost("osprey.example", "os-"))
}

func TestUnitBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "widgets", UnitBase("widgets-main"))
	assert.Equal(t, "widgets", UnitBase("widgets-development"))
	assert.Equal(t, "widgets-fix42", UnitBase("widgets-fix42"))
}
