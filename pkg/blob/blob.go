package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

const (
	weightsFile = "model_weights.bin"
	resultsFile = "results.json"
)

var ErrInvalidPath = errors.New("invalid blob path")

// Store persists model artifacts under slash-separated paths. Read returns
// an error wrapping errors.ErrNotFound for a missing path. Delete removes the
// path and everything below it.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
	List(ctx context.Context, path string) (dirs, files []string, err error)
	Delete(ctx context.Context, path string) error
}

func TemplatePath(model string) string {
	return path.Join("models", model+".bin")
}

func ProjectPath(projectID string) string {
	return projectID
}

func RoundPath(projectID string, round uint64) string {
	return path.Join(projectID, fmt.Sprint(round))
}

func RoundModelPath(projectID string, round uint64) string {
	return path.Join(RoundPath(projectID, round), weightsFile)
}

func DeviceModelPath(projectID string, round uint64, deviceID string) string {
	return path.Join(RoundPath(projectID, round), deviceID, weightsFile)
}

func DeviceResultsPath(projectID string, round uint64, deviceID string) string {
	return path.Join(RoundPath(projectID, round), deviceID, resultsFile)
}

func clean(p string) (string, error) {
	if p == "" {
		return "", ErrInvalidPath
	}
	c := path.Clean("/" + p)
	if c == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}

	return strings.TrimPrefix(c, "/"), nil
}

// children splits the keys found under prefix into immediate sub-directories
// and files.
func children(prefix string, keys []string) (dirs, files []string) {
	seen := map[string]bool{}
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix+"/")
		if rest == k || rest == "" {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		switch {
		case nested && !seen[name]:
			seen[name] = true
			dirs = append(dirs, name)
		case !nested:
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)

	return dirs, files
}
