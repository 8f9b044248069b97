package metadata

import "errors"

var (
	// ErrParse reports a sidecar file that could not be parsed as YAML/JSON.
	ErrParse = errors.New("metadata: cannot parse sidecar file")

	// ErrMissingField reports a document without the required execution_block.
	ErrMissingField = errors.New("metadata: missing required field execution_block")

	// ErrDateFormat reports an execution_block whose date token is missing or
	// not an 8 digit YYYYMMDD value. The record is not persisted.
	ErrDateFormat = errors.New("metadata: execution_block date token is not YYYYMMDD")
)
