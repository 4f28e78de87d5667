package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/extract"
)

type namedExtractor struct {
	name    string
	payload map[string]any
	err     error
	calls   int
}

func (e *namedExtractor) Descriptor() extract.Descriptor {
	return extract.Descriptor{Name: e.name, Description: "test extractor"}
}

func (e *namedExtractor) Extract(context.Context, browser.Handle, string) (map[string]any, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.payload, nil
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := extract.NewRegistry()
	require.NoError(t, r.Register(&namedExtractor{name: "profile"}))
	require.NoError(t, r.Register(&namedExtractor{name: "tasks"}))

	e, ok := r.Resolve("profile")
	require.True(t, ok)
	assert.Equal(t, "profile", e.Descriptor().Name)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"profile", "tasks"}, r.Names())
}

func TestRegistryDuplicateNameIsError(t *testing.T) {
	r := extract.NewRegistry()
	require.NoError(t, r.Register(&namedExtractor{name: "profile"}))

	err := r.Register(&namedExtractor{name: "profile"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryEmptyNameIsError(t *testing.T) {
	r := extract.NewRegistry()
	require.Error(t, r.Register(&namedExtractor{}))
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := extract.NewRegistry()
	r.MustRegister(&namedExtractor{name: "profile"})
	assert.Panics(t, func() { r.MustRegister(&namedExtractor{name: "profile"}) })
}

func TestDefaultRegistryNames(t *testing.T) {
	r := extract.NewDefaultRegistry()
	assert.Equal(t, []string{"profile", "tasks", "specialties"}, r.Names())

	descriptors := r.Descriptors()
	require.Len(t, descriptors, 3)
	for _, d := range descriptors {
		assert.NotEmpty(t, d.Description)
	}
}

func TestExpandNames(t *testing.T) {
	r := extract.NewRegistry()
	r.MustRegister(&namedExtractor{name: "profile"})
	r.MustRegister(&namedExtractor{name: "tasks"})
	r.MustRegister(&namedExtractor{name: "task_history"})

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{
			name:      "literals pass through untouched",
			requested: []string{"profile", "nope"},
			want:      []string{"profile", "nope"},
		},
		{
			name:      "star matches everything",
			requested: []string{"*"},
			want:      []string{"profile", "tasks", "task_history"},
		},
		{
			name:      "prefix glob",
			requested: []string{"task*"},
			want:      []string{"tasks", "task_history"},
		},
		{
			name:      "duplicates keep first position",
			requested: []string{"tasks", "task*", "tasks"},
			want:      []string{"tasks", "task_history"},
		},
		{
			name:      "empty stays empty",
			requested: nil,
			want:      nil,
		},
		{
			name:      "unmatched glob expands to nothing",
			requested: []string{"zz*"},
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ExpandNames(tt.requested))
		})
	}
}
