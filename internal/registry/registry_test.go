package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/elm-module-graph/internal/model"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	r := New(map[string]model.PackageInfo{
		"me/app":   {SourceDirs: []string{"/p/src"}, Dependencies: []string{"elm/core"}},
		"elm/core": {SourceDirs: []string{"/cache/elm/core/src"}},
		"elm/json": {SourceDirs: []string{"/cache/elm/json/src"}},
	})

	info, err := r.Lookup("me/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/src"}, info.SourceDirs)
	assert.Equal(t, []string{"elm/core"}, info.Dependencies)

	_, err = r.Lookup("elm/html")
	require.ErrorIs(t, err, ErrPackageNotFound)
	assert.Contains(t, err.Error(), "elm/html")

	assert.Equal(t, []string{"elm/core", "elm/json", "me/app"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestNewCopiesInput(t *testing.T) {
	t.Parallel()

	dirs := []string{"/p/src"}
	in := map[string]model.PackageInfo{"me/app": {SourceDirs: dirs}}
	r := New(in)

	dirs[0] = "/changed"
	delete(in, "me/app")

	info, err := r.Lookup("me/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/src"}, info.SourceDirs)
}
