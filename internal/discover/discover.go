// Package discover finds Elm modules in a project's source directories.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/elm-module-graph/internal/lang"
)

var skipDirs = map[string]struct{}{
	"elm-stuff":    {},
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"build":        {},
	"dist":         {},
}

var segmentRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// Modules returns the sorted names of all modules under sourceDirs. root is
// the project directory whose git index or .gitignore filters the walk.
// A module found in more than one source directory is reported once.
func Modules(root string, sourceDirs []string) ([]string, error) {
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	seen := make(map[string]struct{})
	var results []string

	for _, srcDir := range sourceDirs {
		if fi, err := os.Stat(srcDir); err != nil || !fi.IsDir() {
			continue
		}

		err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors
			}

			name := d.Name()

			if d.IsDir() {
				if path == srcDir {
					return nil
				}
				if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}

			if strings.HasPrefix(name, ".") {
				return nil
			}

			// Skip symlinks
			if d.Type()&os.ModeSymlink != 0 {
				return nil
			}

			if lang.ForExtension(filepath.Ext(name)) != "elm" {
				return nil
			}

			if ignored(root, path, gitFiles, gi) {
				return nil
			}

			rel, err := filepath.Rel(srcDir, path)
			if err != nil {
				return nil
			}
			module, ok := moduleName(rel)
			if !ok {
				return nil
			}
			if _, dup := seen[module]; dup {
				return nil
			}
			seen[module] = struct{}{}
			results = append(results, module)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(results)
	return results, nil
}

// moduleName converts a path relative to a source directory into a dotted
// module name, rejecting paths that are not valid module names.
func moduleName(rel string) (string, bool) {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, s := range segments {
		if !segmentRe.MatchString(s) {
			return "", false
		}
	}
	return strings.Join(segments, "."), true
}

// ignored applies git filtering to files inside root. Files outside root
// (source directories like "../shared") are never filtered.
func ignored(root, path string, gitFiles map[string]struct{}, gi *ignore.GitIgnore) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if gitFiles != nil {
		_, ok := gitFiles[rel]
		return !ok
	}
	return gi != nil && gi.MatchesPath(rel)
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
