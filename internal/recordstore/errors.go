package recordstore

import "errors"

// Sentinel errors for the record store commit protocol.
var (
	ErrEnvironmentNotConfigured = errors.New("record store environment not configured")
	ErrParentCreationFailed     = errors.New("parent record creation failed")
	ErrAllChildrenFailed        = errors.New("all child records failed")
	ErrTemplateCallFailed       = errors.New("template call failed")
)
