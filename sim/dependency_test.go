package sim

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDependencyGraph_RejectsNonPositiveThreshold(t *testing.T) {
	_, err := NewDependencyGraph(0, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestDependencyGraph_RegisterIsIdempotent(t *testing.T) {
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("b", "a"))

	assert.Equal(t, []string{"b"}, g.Dependents("a"))
	assert.Equal(t, 1, g.Stats().Dependencies)
}

func TestDependencyGraph_RejectsSelfDependency(t *testing.T) {
	g := mustGraph(t, nil)
	assert.Error(t, g.RegisterDependency("a", "a"))
	assert.Empty(t, g.Dependents("a"))
}

func TestDependencyGraph_UnregisterIsIdempotent(t *testing.T) {
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	g.UnregisterDependency("b", "a")
	g.UnregisterDependency("b", "a")
	g.UnregisterDependency("x", "unknown")

	assert.Empty(t, g.Dependents("a"))
}

func TestCanSafelyRetire_NoDependentsIsSafe(t *testing.T) {
	g := mustGraph(t, nil)
	svc := NewService("a", "a", testTime)
	svc.SetDependentCount(7) // stale value is overwritten

	assert.True(t, g.CanSafelyRetire(svc))
	assert.Equal(t, 0, svc.DependentCount())
}

func TestCanSafelyRetire_SingleDependentIsSafeAndNotifies(t *testing.T) {
	// GIVEN one dependent, below the critical threshold of 2
	notifier := &recordingNotifier{}
	g := mustGraph(t, notifier)
	require.NoError(t, g.RegisterDependency("b", "a"))
	svc := NewService("a", "a", testTime)

	// WHEN checking safety
	safe := g.CanSafelyRetire(svc)

	// THEN retirement is allowed, the dependent is notified, and the count is written back
	assert.True(t, safe)
	assert.Equal(t, []string{"b"}, notifier.calls["a"])
	assert.Equal(t, 1, svc.DependentCount())
}

func TestCanSafelyRetire_CriticalDependentsBlock(t *testing.T) {
	notifier := &recordingNotifier{}
	g := mustGraph(t, notifier)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("c", "a"))
	svc := NewService("a", "a", testTime)

	assert.False(t, g.CanSafelyRetire(svc))
	assert.Equal(t, 2, svc.DependentCount())
	assert.Empty(t, notifier.calls, "blocked retirements notify nobody")
}

func TestWithCriticalThreshold_OverridesGraphDefault(t *testing.T) {
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("c", "a"))
	svc := NewService("a", "a", testTime)

	assert.False(t, g.CanSafelyRetire(svc))
	assert.True(t, g.WithCriticalThreshold(3).CanSafelyRetire(svc))
	assert.False(t, g.WithCriticalThreshold(1).CanSafelyRetire(svc))
}

func TestClearDependenciesForRetiredService_RemovesBothDirections(t *testing.T) {
	// GIVEN "a" is a provider for b and c, and itself depends on "p"
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("c", "a"))
	require.NoError(t, g.RegisterDependency("a", "p"))
	require.NoError(t, g.RegisterDependency("q", "p"))

	// WHEN "a" is cleared
	g.ClearDependenciesForRetiredService("a")

	// THEN "a" appears neither as provider nor as dependent
	assert.Empty(t, g.Dependents("a"))
	assert.False(t, g.DependsOn("a"))
	assert.Equal(t, []string{"q"}, g.Dependents("p"))
}

func TestClearDependencies_UnblocksProviderForLaterChecks(t *testing.T) {
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("c", "a"))
	provider := NewService("a", "a", testTime)
	assert.False(t, g.CanSafelyRetire(provider))

	g.ClearDependenciesForRetiredService("b")
	g.ClearDependenciesForRetiredService("c")

	assert.True(t, g.CanSafelyRetire(provider))
}

func TestDependencyGraph_Stats(t *testing.T) {
	g := mustGraph(t, nil)
	require.NoError(t, g.RegisterDependency("b", "a"))
	require.NoError(t, g.RegisterDependency("c", "a"))
	require.NoError(t, g.RegisterDependency("c", "b"))

	assert.Equal(t, GraphStats{Providers: 2, Dependencies: 3, CriticalProviders: 1}, g.Stats())
}

func TestDependencyGraph_ConcurrentAccess(t *testing.T) {
	// Run with -race: concurrent registrations, checks and cleanups must not race
	g := mustGraph(t, LogNotifier{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := NewService("p", "p", testTime)
			for j := 0; j < 200; j++ {
				_ = g.RegisterDependency("d", "p")
				g.CanSafelyRetire(svc)
				g.ClearDependenciesForRetiredService("d")
			}
		}()
	}
	wg.Wait()
	assert.False(t, g.DependsOn("d"))
}
