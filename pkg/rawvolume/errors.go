package rawvolume

import "fmt"

// MetadataParseError reports a malformed .dat sidecar
type MetadataParseError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *MetadataParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "metadata"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Reason)
}

func (e *MetadataParseError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a raw file whose length does not match
// the dimensions declared in its sidecar
type DimensionMismatchError struct {
	Path     string
	Dims     [3]int
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: dimensions %dx%dx%d need %d bytes, file has %d",
		e.Path, e.Dims[0], e.Dims[1], e.Dims[2], e.Expected, e.Actual)
}

// IOError reports a failure reading or writing volume files
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
