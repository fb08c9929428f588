package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Expand resolves a workflow path argument. A plain path is returned as is
// (it need not exist yet); a glob pattern, with ** support, expands to the
// regular files it matches in sorted order and must match at least one.
func Expand(pattern string) ([]string, error) {
	if !containsGlobMeta(pattern) {
		return []string{pattern}, nil
	}
	hits, err := doublestar.FilepathGlob(filepath.FromSlash(pattern))
	if err != nil {
		return nil, fmt.Errorf("expand workflow glob %q: %w", pattern, err)
	}
	var out []string
	for _, hit := range hits {
		if isRegularFile(hit) {
			out = append(out, hit)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no workflow files match %q", pattern)
	}
	sort.Strings(out)
	return out, nil
}

func containsGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func isRegularFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
