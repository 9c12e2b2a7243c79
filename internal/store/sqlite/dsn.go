package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const (
	scheme     = "sqlite://"
	memoryPath = ":memory:"
)

// parseDSN turns a sqlite:// URL into the path form the driver opens.
// Relative paths are anchored to the working directory; a query string is
// passed through untouched.
func parseDSN(dsn string) (string, error) {
	rest, ok := strings.CutPrefix(dsn, scheme)
	if !ok {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected %s", scheme)
	}

	path, query, hasQuery := strings.Cut(rest, "?")
	if path == "" {
		return "", fmt.Errorf("sqlite DSN has no database path")
	}

	if path != memoryPath {
		unescaped, err := url.PathUnescape(path)
		if err != nil {
			return "", fmt.Errorf("unescaping path: %w", err)
		}
		path = unescaped
		if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") && !strings.HasPrefix(path, "../") {
			path = "./" + path
		}
	}

	if hasQuery {
		return path + "?" + query, nil
	}
	return path, nil
}

func isMemory(driverDSN string) bool {
	path, _, _ := strings.Cut(driverDSN, "?")
	return path == memoryPath
}
