package hoststore

import (
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreMatcher collects .gitignore rules from a tree. Each file's rules
// only apply below the directory that holds it.
type ignoreMatcher struct {
	matchers []scopedMatcher
}

type scopedMatcher struct {
	dirPrefix string
	ignore    *ignore.GitIgnore
}

func loadIgnoreMatcher(fs billy.Filesystem) (*ignoreMatcher, error) {
	m := &ignoreMatcher{}
	if err := m.walk(fs, ""); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ignoreMatcher) walk(fs billy.Filesystem, relDir string) error {
	entries, err := fs.ReadDir("/" + relDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rel := path.Join(relDir, e.Name())
		if e.IsDir() {
			if e.Name() == ".git" {
				continue
			}
			if err := m.walk(fs, rel); err != nil {
				return err
			}
			continue
		}
		if e.Name() != ".gitignore" {
			continue
		}

		f, err := fs.Open("/" + rel)
		if err != nil {
			continue
		}
		data, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			continue
		}

		lines := strings.Split(string(data), "\n")
		m.matchers = append(m.matchers, scopedMatcher{
			dirPrefix: relDir,
			ignore:    ignore.CompileIgnoreLines(lines...),
		})
	}
	return nil
}

// isIgnored reports whether relPath (no leading separator) is ignored.
// The .git directory is always hidden once any ignore rules are loaded.
func (m *ignoreMatcher) isIgnored(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	if relPath == ".git" || strings.HasPrefix(relPath, ".git/") {
		return true
	}

	checkPath := relPath
	if isDir {
		checkPath = relPath + "/"
	}

	for _, sm := range m.matchers {
		var pathToCheck string
		if sm.dirPrefix == "" {
			pathToCheck = checkPath
		} else {
			prefix := sm.dirPrefix + "/"
			if !strings.HasPrefix(relPath, prefix) {
				continue
			}
			pathToCheck = strings.TrimPrefix(checkPath, prefix)
		}

		if sm.ignore.MatchesPath(pathToCheck) {
			return true
		}
	}
	return false
}
