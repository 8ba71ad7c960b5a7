package resolve

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/elm-module-graph/internal/model"
	"github.com/phobologic/elm-module-graph/internal/registry"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestResolver(t *testing.T, packages map[string]model.PackageInfo) (*Resolver, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return New(registry.New(packages), WithLogger(logger)), &logs
}

func TestModulePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Main.elm", ModulePath("Main"))
	assert.Equal(t, filepath.Join("Json", "Decode.elm"), ModulePath("Json.Decode"))
	assert.Equal(t, filepath.Join("Page", "Home", "View.elm"), ModulePath("Page.Home.View"))
	assert.Equal(t, filepath.FromSlash("Foo/.elm"), ModulePath("Foo."))
}

func TestResolveTrailingDotDoesNotMatch(t *testing.T) {
	t.Parallel()

	own := filepath.Join(t.TempDir(), "src")
	writeFile(t, own, "Foo.elm", "module Foo exposing (..)")

	r, logs := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {SourceDirs: []string{own}},
	})

	_, ok, err := r.Resolve("me/app", "Foo.")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, strings.Count(logs.String(), "level=WARN"))
}

func TestResolveOwnSourcesFirst(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	own := filepath.Join(root, "app", "src")
	dep := filepath.Join(root, "dep", "src")
	ownFile := writeFile(t, own, "Shared.elm", "module Shared exposing (..)")
	writeFile(t, dep, "Shared.elm", "module Shared exposing (..)")

	r, logs := newTestResolver(t, map[string]model.PackageInfo{
		"me/app":  {SourceDirs: []string{own}, Dependencies: []string{"dep/pkg"}},
		"dep/pkg": {SourceDirs: []string{dep}},
	})

	res, ok, err := r.Resolve("me/app", "Shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Resolution{Package: "me/app", Module: "Shared", Path: ownFile}, res)
	assert.Empty(t, logs.String())
}

func TestResolveDependencyOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	own := filepath.Join(root, "app", "src")
	d1 := filepath.Join(root, "d1", "src")
	d2 := filepath.Join(root, "d2", "src")
	require.NoError(t, os.MkdirAll(own, 0o755))
	require.NoError(t, os.MkdirAll(d1, 0o755))
	d2File := writeFile(t, d2, filepath.Join("X", "Y.elm"), "module X.Y exposing (..)")

	r, logs := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {SourceDirs: []string{own}, Dependencies: []string{"a/d1", "a/d2"}},
		"a/d1":   {SourceDirs: []string{d1}},
		"a/d2":   {SourceDirs: []string{d2}},
	})

	res, ok, err := r.Resolve("me/app", "X.Y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a/d2", res.Package)
	assert.Equal(t, "X.Y", res.Module)
	assert.Equal(t, d2File, res.Path)
	assert.Empty(t, logs.String())
}

func TestResolveFirstDependencyWins(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d1 := filepath.Join(root, "d1", "src")
	d2 := filepath.Join(root, "d2", "src")
	d1File := writeFile(t, d1, "X.elm", "module X exposing (..)")
	writeFile(t, d2, "X.elm", "module X exposing (..)")

	r, _ := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {Dependencies: []string{"a/d1", "a/d2"}},
		"a/d1":   {SourceDirs: []string{d1}},
		"a/d2":   {SourceDirs: []string{d2}},
	})

	res, ok, err := r.Resolve("me/app", "X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a/d1", res.Package)
	assert.Equal(t, d1File, res.Path)
}

func TestResolveUnresolvedWarnsOnce(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r, logs := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {SourceDirs: []string{filepath.Join(root, "src")}, Dependencies: []string{"a/d1", "a/d2"}},
		"a/d1":   {SourceDirs: []string{filepath.Join(root, "d1")}},
		"a/d2":   {SourceDirs: []string{filepath.Join(root, "d2")}},
	})

	_, ok, err := r.Resolve("me/app", "Missing.Module")
	require.NoError(t, err)
	assert.False(t, ok)

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, "level=WARN"))
	assert.Contains(t, out, "module=Missing.Module")
	assert.Contains(t, out, "importer=me/app")
}

func TestResolveSkipsDirectories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	own := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(own, "Thing.elm"), 0o755))

	r, _ := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {SourceDirs: []string{own}},
	})

	_, ok, err := r.Resolve("me/app", "Thing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveUnregisteredPackage(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {Dependencies: []string{"gone/pkg"}},
	})

	_, _, err := r.Resolve("other/pkg", "A")
	require.ErrorIs(t, err, registry.ErrPackageNotFound)

	_, _, err = r.Resolve("me/app", "A")
	require.ErrorIs(t, err, registry.ErrPackageNotFound)
	assert.Contains(t, err.Error(), "gone/pkg")
}

func TestSearchDirsNotTransitive(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t, map[string]model.PackageInfo{
		"me/app": {SourceDirs: []string{"/app/src", "/app/vendor"}, Dependencies: []string{"a/b"}},
		"a/b":    {SourceDirs: []string{"/b/src"}, Dependencies: []string{"c/d"}},
		"c/d":    {SourceDirs: []string{"/d/src"}},
	})

	dirs, err := r.SearchDirs("me/app")
	require.NoError(t, err)
	assert.Equal(t, []SearchDir{
		{Package: "me/app", Dir: "/app/src"},
		{Package: "me/app", Dir: "/app/vendor"},
		{Package: "a/b", Dir: "/b/src"},
	}, dirs)
}
