package format

import "fmt"

// DecodeError reports a file that does not match the shape its format
// expects.
type DecodeError struct {
	Format PackFormat
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s pack %s: %v", e.Format.Label(), e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(f PackFormat, path string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Format: f, Path: path, Err: err}
}

func decodeErrf(f PackFormat, path, format string, args ...any) error {
	return &DecodeError{Format: f, Path: path, Err: fmt.Errorf(format, args...)}
}
