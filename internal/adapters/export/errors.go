package export

import "errors"

// ErrUnsupportedFormat is returned for an output format other than json or yaml.
var ErrUnsupportedFormat = errors.New("unsupported output format")
