package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Latest names the current version of a versioned root.
const Latest = "latest"

// ResolveVersion finds the directory holding the requested version.
//
// A root without a versions/ directory is itself the dataset and only
// answers to "" and "latest"; the resolved name is then "". For versioned
// roots, "" and "latest" follow versions/latest, a one-line file naming the
// version. Without that file the lexically greatest version directory is
// used.
func ResolveVersion(root, version string) (dir, resolved string, err error) {
	versions := filepath.Join(root, "versions")
	info, err := os.Stat(versions)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		if version == "" || version == Latest {
			return root, "", nil
		}
		return "", "", &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("version %q requested but %s has no versions directory", version, root),
			Path:    root,
		}
	}
	if err != nil {
		return "", "", &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: versions}
	}

	if version == "" || version == Latest {
		version, err = latestVersion(versions)
		if err != nil {
			return "", "", err
		}
	}

	dir = filepath.Join(versions, version)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", "", &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("version %q not found", version),
			Path:    dir,
		}
	}
	return dir, version, nil
}

func latestVersion(versions string) (string, error) {
	pointer := filepath.Join(versions, Latest)
	info, err := os.Stat(pointer)
	switch {
	case err == nil && info.IsDir():
		return Latest, nil
	case err == nil:
		data, err := os.ReadFile(pointer)
		if err != nil {
			return "", &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: pointer}
		}
		name := strings.TrimSpace(string(data))
		if name == "" || strings.ContainsAny(name, `/\`) {
			return "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("invalid latest pointer %q", name), Path: pointer}
		}
		return name, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: pointer}
	}

	names, err := ListVersions(filepath.Dir(versions))
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", &LoadError{Code: ErrCodeNotFound, Message: "no versions found", Path: versions}
	}
	return names[len(names)-1], nil
}

// ListVersions returns the version directories under root/versions, sorted.
// A root without versions yields nil.
func ListVersions(root string) ([]string, error) {
	versions := filepath.Join(root, "versions")
	entries, err := os.ReadDir(versions)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: versions}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
