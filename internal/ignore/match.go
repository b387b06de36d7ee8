package ignore

import (
	"path"
	"strings"
)

// gitDir is ignored regardless of rule content.
const gitDir = ".git"

// IsIgnored reports whether relPath, relative to the scan root with forward
// slashes, is ignored by sets. isDir tells whether the target itself is a
// directory. Sets must be ordered root-to-leaf, as Discover returns them.
//
// Every pattern of every rule set whose origin is an ancestor of relPath is
// folded in order; a matching pattern sets the result to !Negated, so the last
// match wins.
func IsIgnored(relPath string, isDir bool, sets []RuleSet) bool {
	relPath = normalize(relPath)
	if relPath == "" {
		return false
	}
	if hasSegment(relPath, gitDir) {
		return true
	}

	ignored := false
	for _, set := range sets {
		rel, ok := relativeTo(set.Origin, relPath)
		if !ok {
			continue
		}
		for _, p := range set.Patterns {
			if p.Matches(rel, isDir) {
				ignored = !p.Negated
			}
		}
	}
	return ignored
}

// Matches reports whether the pattern matches rel, a path relative to the
// origin of the pattern's rule set.
//
// An unanchored pattern matches any single segment. An anchored pattern
// matches the full path or any ancestor directory prefix of it. A directory-only
// pattern never matches the target itself when the target is not a directory.
func (p Pattern) Matches(rel string, isDir bool) bool {
	segments := strings.Split(rel, "/")

	if !p.Anchored {
		for i, seg := range segments {
			if !glob(p.Raw, seg) {
				continue
			}
			if p.DirOnly && i == len(segments)-1 && !isDir {
				continue
			}
			return true
		}
		return false
	}

	// path.Match never lets a wildcard cross "/", so only a prefix with the
	// same number of segments can match.
	n := strings.Count(p.Raw, "/") + 1
	if len(segments) < n {
		return false
	}
	if !glob(p.Raw, strings.Join(segments[:n], "/")) {
		return false
	}
	if p.DirOnly && len(segments) == n && !isDir {
		return false
	}
	return true
}

// glob is path.Match with malformed patterns degrading to literal comparison.
func glob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	if err != nil {
		return pattern == name
	}
	return ok
}

// relativeTo returns p relative to origin when origin is an ancestor of p.
func relativeTo(origin, p string) (string, bool) {
	origin = normalize(origin)
	if origin == "" {
		return p, true
	}
	if strings.HasPrefix(p, origin+"/") {
		return p[len(origin)+1:], true
	}
	return "", false
}

func hasSegment(p, name string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == name {
			return true
		}
	}
	return false
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "./")
	return strings.Trim(p, "/")
}
