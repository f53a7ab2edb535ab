package registry

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinNames(t *testing.T) {
	names := New().Names()
	sort.Strings(names)
	require.Equal(t,
		[]string{"billhub", "brokerdirect", "demobank", "demobankapi", "porbank"},
		names)
}

func TestBuildUnknown(t *testing.T) {
	_, err := New().Build("nosuchbank", Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not registered")
}

func TestCapabilities(t *testing.T) {
	r := New()
	cfg := Config{BaseURL: "http://127.0.0.1:1/", Login: "a", Password: "b"}

	source, err := r.Build("demobank", cfg)
	require.NoError(t, err)
	require.Equal(t, "demobank", source.Name())
	_, ok := source.(AccountLister)
	require.True(t, ok)
	_, ok = source.(HistoryLister)
	require.True(t, ok)

	source, err = r.Build("porbank", cfg)
	require.NoError(t, err)
	_, ok = source.(AccountLister)
	require.True(t, ok)
	_, ok = source.(InvestmentLister)
	require.True(t, ok)

	source, err = r.Build("billhub", cfg)
	require.NoError(t, err)
	_, ok = source.(SubscriptionLister)
	require.True(t, ok)
}
