package source

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed shapes.cue
var shapesSource []byte

// Shape definitions in shapes.cue.
const (
	ShapeTable         = "#Table"
	ShapeRegistry      = "#Registry"
	ShapeFlatOverlay   = "#FlatOverlay"
	ShapeLegacyOverlay = "#LegacyOverlay"
	ShapeCompat        = "#Compat"
)

// shapeChecker unifies JSON documents with the embedded definitions.
// A cue.Context is not safe for concurrent use; one checker serves one Load.
type shapeChecker struct {
	ctx  *cue.Context
	defs cue.Value
}

func newShapeChecker() (*shapeChecker, error) {
	ctx := cuecontext.New()
	defs := ctx.CompileBytes(shapesSource, cue.Filename("shapes.cue"))
	if err := defs.Err(); err != nil {
		return nil, fmt.Errorf("compiling shapes: %w", err)
	}
	return &shapeChecker{ctx: ctx, defs: defs}, nil
}

// Check reports whether data, read from path, satisfies the named
// definition. Failures are *LoadError with code E004.
func (s *shapeChecker) Check(def, path string, data []byte) error {
	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return shapeError(path, err)
	}
	doc := s.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return shapeError(path, err)
	}

	schema := s.defs.LookupPath(cue.ParsePath(def))
	if !schema.Exists() {
		return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("unknown shape %s", def), Path: path}
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return shapeError(path, err)
	}
	return nil
}

// shapeError converts a CUE error into a LoadError carrying the first
// error's position.
func shapeError(path string, err error) *LoadError {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeShape, Message: err.Error(), Path: path}
	}

	first := errs[0]
	le := &LoadError{Code: ErrCodeShape, Message: first.Error(), Path: path}
	for _, pos := range errors.Positions(first) {
		if pos.Filename() == path {
			le.Pos = pos
			break
		}
	}
	return le
}
