package source

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/mockset/internal/dataset"
	"github.com/roach88/mockset/internal/overlay"
)

// LoadMode controls how errors are handled while loading documents.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reads every document and joins all errors.
	LoadModeCollectAll
)

// CompatFile is the legacy-name compatibility map inside overlays/.
const CompatFile = "_compat.json"

// Options configures Load.
type Options struct {
	// Version selects versions/<Version>; "" and "latest" follow the pointer.
	Version string
	Mode    LoadMode
}

// Snapshot is everything read from one dataset version.
type Snapshot struct {
	Root     string
	Version  string
	Dir      string
	Registry *dataset.Registry
	Tables   dataset.Tables
	Catalog  *overlay.Catalog

	// Files counts the documents read.
	Files int
}

// Load reads the dataset version under root selected by opts.
//
// In LoadModeCollectAll a snapshot holding every readable document is
// returned together with the joined errors of the rest.
func Load(root string, opts Options) (*Snapshot, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dataset root not found: %s", root), Path: root}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing dataset root: %v", err), Path: root}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", root), Path: root}
	}

	dir, version, err := ResolveVersion(root, opts.Version)
	if err != nil {
		return nil, err
	}
	shapes, err := newShapeChecker()
	if err != nil {
		return nil, err
	}

	l := &loader{dir: dir, mode: opts.Mode, shapes: shapes}
	snap := &Snapshot{Root: root, Version: version, Dir: dir}

	snap.Registry, err = l.registry()
	if err != nil {
		return nil, err
	}
	slog.Debug("registry loaded", "dir", dir, "version", snap.Registry.Version, "tables", len(snap.Registry.Tables))

	if snap.Tables, err = l.tables(); err != nil && l.mode == LoadModeFailFast {
		return nil, err
	}
	catalog, err := l.overlays()
	if err != nil && l.mode == LoadModeFailFast {
		return nil, err
	}
	snap.Catalog = catalog
	snap.Files = l.files

	if len(l.errs) > 0 {
		return snap, errors.Join(l.errs...)
	}
	return snap, nil
}

type loader struct {
	dir    string
	mode   LoadMode
	shapes *shapeChecker
	files  int
	errs   []error
}

// fail records err. It returns err in fail-fast mode and nil otherwise, so
// callers can keep going when collecting.
func (l *loader) fail(err error) error {
	l.errs = append(l.errs, err)
	if l.mode == LoadModeFailFast {
		return err
	}
	return nil
}

// read loads path and checks it against shape.
func (l *loader) read(path, shape string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: path}
	}
	if err := l.shapes.Check(shape, path, data); err != nil {
		return nil, err
	}
	l.files++
	slog.Debug("document loaded", "path", path, "shape", shape, "bytes", len(data))
	return data, nil
}

func (l *loader) registry() (*dataset.Registry, error) {
	path := filepath.Join(l.dir, "dataset.json")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNoRegistry, Message: "no dataset.json found", Path: path}
	}
	data, err := l.read(path, ShapeRegistry)
	if err != nil {
		return nil, err
	}
	reg, err := dataset.DecodeRegistry(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeShape, Message: err.Error(), Path: path}
	}
	return reg, nil
}

func (l *loader) tables() (dataset.Tables, error) {
	dir := filepath.Join(l.dir, "tables")
	entries, err := readDir(dir)
	if err != nil {
		return nil, l.fail(err)
	}

	var tables dataset.Tables
	for _, e := range entries {
		if e.IsDir() || !isJSON(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := l.read(path, ShapeTable)
		if err != nil {
			if err := l.fail(err); err != nil {
				return nil, err
			}
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		tbl, err := dataset.DecodeTable(name, data)
		if err != nil {
			if err := l.fail(&LoadError{Code: ErrCodeShape, Message: err.Error(), Path: path}); err != nil {
				return nil, err
			}
			continue
		}
		tables = append(tables, tbl)
	}
	return tables, nil
}

func (l *loader) overlays() (*overlay.Catalog, error) {
	dir := filepath.Join(l.dir, "overlays")
	entries, err := readDir(dir)
	if err != nil {
		return overlay.NewCatalog(nil, nil, nil), l.fail(err)
	}

	var (
		flat   []*overlay.Flat
		legacy []*overlay.Legacy
		compat map[string][]string
	)
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		switch {
		case strings.HasPrefix(name, "."):
			continue
		case e.IsDir():
			docs, err := l.legacyDir(path, name)
			if err != nil {
				return nil, err
			}
			legacy = append(legacy, docs...)
		case name == CompatFile:
			data, err := l.read(path, ShapeCompat)
			if err == nil {
				compat, err = overlay.DecodeCompat(data)
			}
			if err != nil {
				if err := l.fail(asLoadError(err, path)); err != nil {
					return nil, err
				}
			}
		case isJSON(name):
			data, err := l.read(path, ShapeFlatOverlay)
			var f *overlay.Flat
			if err == nil {
				f, err = overlay.DecodeFlat(name, data)
			}
			if err != nil {
				if err := l.fail(asLoadError(err, path)); err != nil {
					return nil, err
				}
				continue
			}
			flat = append(flat, f)
		}
	}
	return overlay.NewCatalog(flat, legacy, compat), nil
}

// legacyDir reads every legacy document in one table-group directory.
func (l *loader) legacyDir(dir, group string) ([]*overlay.Legacy, error) {
	entries, err := readDir(dir)
	if err != nil {
		return nil, l.fail(err)
	}

	var out []*overlay.Legacy
	for _, e := range entries {
		if e.IsDir() || !isJSON(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := l.read(path, ShapeLegacyOverlay)
		var doc *overlay.Legacy
		if err == nil {
			doc, err = overlay.DecodeLegacy(group, e.Name(), data)
		}
		if err != nil {
			if err := l.fail(asLoadError(err, path)); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// readDir lists dir; a missing directory is empty.
func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error(), Path: dir}
	}
	return entries, nil
}

func isJSON(name string) bool {
	return filepath.Ext(name) == ".json" && !strings.HasPrefix(name, ".")
}

func asLoadError(err error, path string) error {
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Code: ErrCodeShape, Message: err.Error(), Path: path}
}
