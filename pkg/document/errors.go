package document

import "errors"

// ErrDecode is returned when an upload cannot be opened as an image or PDF.
var ErrDecode = errors.New("cannot decode document")
