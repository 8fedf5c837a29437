package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOf(steps []*Step, name string) int {
	for i, s := range steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func TestSortSteps_NoDependencies(t *testing.T) {
	steps := []*Step{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	sorted, err := sortSteps(steps)
	require.NoError(t, err)
	assert.Len(t, sorted, 3)
}

func TestSortSteps_DependencyOrder(t *testing.T) {
	steps := []*Step{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b"},
		{Name: "c", DependsOn: []string{"a"}},
	}

	sorted, err := sortSteps(steps)
	require.NoError(t, err)
	require.Len(t, sorted, 3)

	posB := indexOf(sorted, "b")
	posA := indexOf(sorted, "a")
	posC := indexOf(sorted, "c")
	assert.Less(t, posB, posA, "b should come before a")
	assert.Less(t, posA, posC, "a should come before c")
}

func TestSortSteps_Cycle(t *testing.T) {
	steps := []*Step{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}

	_, err := sortSteps(steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestSortSteps_UnknownDependency(t *testing.T) {
	steps := []*Step{{Name: "a", DependsOn: []string{"ghost"}}}

	_, err := sortSteps(steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestSortSteps_DuplicateName(t *testing.T) {
	steps := []*Step{{Name: "a"}, {Name: "a"}}

	_, err := sortSteps(steps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSortSteps_EmptyName(t *testing.T) {
	_, err := sortSteps([]*Step{{Name: ""}})
	assert.Error(t, err)
}

func TestReverse(t *testing.T) {
	steps := []*Step{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	rev := Reverse(steps)
	require.Len(t, rev, 3)
	assert.Equal(t, "c", rev[0].Name)
	assert.Equal(t, "b", rev[1].Name)
	assert.Equal(t, "a", rev[2].Name)
	// Input untouched.
	assert.Equal(t, "a", steps[0].Name)
}
