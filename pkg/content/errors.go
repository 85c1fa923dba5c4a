package content

import "fmt"

// ReadError reports a file that could not be opened or read during a
// content operation. It is a per-file failure: the caller degrades that
// file's outcome and the run continues.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
