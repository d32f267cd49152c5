package browse

import (
	"testing"

	"github.com/meridianav/avcore"
	"github.com/stretchr/testify/require"
)

func TestMergeAddModifyModifyRemoveSequence(t *testing.T) {
	tr := New(nil, DefaultOptions())
	name := avcore.Name("device-x")

	// Announce routing, then control-monitoring, on interface 0: the
	// first sighting is Added, the second a Modified.
	d, ok := tr.Observe(Sighting{Name: name, Type: ServiceTypeRouting, Interface: 0, Event: SightingAdd})
	require.True(t, ok)
	require.Equal(t, DeltaAdded, d.Kind)

	d, ok = tr.Observe(Sighting{Name: name, Type: ServiceTypeConMon, Interface: 0, Event: SightingAdd})
	require.True(t, ok)
	require.Equal(t, DeltaModified, d.Kind, "second service type on an already-present node is a Modified, not another Added")

	view, ok := tr.Node(name)
	require.True(t, ok)
	require.True(t, view.Has(ServiceTypeRouting, 0))
	require.True(t, view.Has(ServiceTypeConMon, 0))

	// Control-monitoring also appears on interface 1: Modified.
	d, ok = tr.Observe(Sighting{Name: name, Type: ServiceTypeConMon, Interface: 1, Event: SightingAdd})
	require.True(t, ok)
	require.Equal(t, DeltaModified, d.Kind)

	view, _ = tr.Node(name)
	require.True(t, view.Has(ServiceTypeConMon, 1))
	require.True(t, view.Has(ServiceTypeConMon, 0), "interface 0 sighting must survive the interface 1 addition")

	// Withdraw control-monitoring on interface 0: Modified (still
	// present via routing and via conmon/iface1).
	d, ok = tr.Observe(Sighting{Name: name, Type: ServiceTypeConMon, Interface: 0, Event: SightingRemove})
	require.True(t, ok)
	require.Equal(t, DeltaModified, d.Kind)

	view, _ = tr.Node(name)
	require.False(t, view.Has(ServiceTypeConMon, 0))
	require.True(t, view.Has(ServiceTypeConMon, 1))
	require.True(t, view.Has(ServiceTypeRouting, 0))

	// Withdraw routing on interface 0: Modified (still present via
	// conmon/iface1).
	d, ok = tr.Observe(Sighting{Name: name, Type: ServiceTypeRouting, Interface: 0, Event: SightingRemove})
	require.True(t, ok)
	require.Equal(t, DeltaModified, d.Kind)

	// Withdraw the last sighting: Removed, and the node disappears.
	d, ok = tr.Observe(Sighting{Name: name, Type: ServiceTypeConMon, Interface: 1, Event: SightingRemove})
	require.True(t, ok)
	require.Equal(t, DeltaRemoved, d.Kind)

	_, ok = tr.Node(name)
	require.False(t, ok)
	require.Equal(t, 0, tr.Len())
}

func TestNetworkChangedIsConsumingAndDebounced(t *testing.T) {
	tr := New(nil, DefaultOptions())
	require.False(t, tr.NetworkChanged())

	tr.Observe(Sighting{Name: avcore.Name("dev"), Type: ServiceTypeUpgrade, Interface: 0, Event: SightingAdd})
	require.True(t, tr.NetworkChanged())
	require.False(t, tr.NetworkChanged(), "NetworkChanged must clear on read")
}

func TestRemoveOfUnknownNodeIsIgnored(t *testing.T) {
	tr := New(nil, DefaultOptions())
	d, ok := tr.Observe(Sighting{Name: avcore.Name("ghost"), Type: ServiceTypeSafeMode, Interface: 0, Event: SightingRemove})
	require.False(t, ok)
	require.Equal(t, Delta{}, d)
	require.Equal(t, 0, tr.Len())
}

type fakeAdapter struct {
	reconfirmed []avcore.Name
	rediscoveredTypes []ServiceType
}

func (f *fakeAdapter) Reconfirm(name avcore.Name) { f.reconfirmed = append(f.reconfirmed, name) }
func (f *fakeAdapter) Rediscover(types []ServiceType) { f.rediscoveredTypes = types }

func TestReconfirmAndRediscoverRequireAdHoc(t *testing.T) {
	fa := &fakeAdapter{}
	tr := New(fa, Options{AdHoc: false})

	err := tr.Reconfirm(avcore.Name("dev"))
	require.NotNil(t, err)
	require.Equal(t, avcore.NotSupported, err.Kind)
	require.Empty(t, fa.reconfirmed)

	err = tr.Rediscover([]ServiceType{ServiceTypeRouting})
	require.NotNil(t, err)
	require.Equal(t, avcore.NotSupported, err.Kind)
}

func TestReconfirmAndRediscoverDelegateInAdHoc(t *testing.T) {
	fa := &fakeAdapter{}
	tr := New(fa, Options{AdHoc: true})

	require.Nil(t, tr.Reconfirm(avcore.Name("dev")))
	require.Equal(t, []avcore.Name{avcore.Name("dev")}, fa.reconfirmed)

	require.Nil(t, tr.Rediscover([]ServiceType{ServiceTypeConMon, ServiceTypeUpgrade}))
	require.Equal(t, []ServiceType{ServiceTypeConMon, ServiceTypeUpgrade}, fa.rediscoveredTypes)
}
