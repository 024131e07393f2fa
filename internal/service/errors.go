package service

import "errors"

var (
	ErrBeliefNotFound       = errors.New("belief not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrConflictNotFound     = errors.New("conflict not found")

	// ErrSelfReference rejects edges whose source and target are the same
	// belief.
	ErrSelfReference = errors.New("relationship cannot reference the same belief twice")

	// ErrStrengthOutOfRange rejects edge strengths outside [0, 1].
	ErrStrengthOutOfRange = errors.New("relationship strength must be between 0 and 1")

	// ErrInvalidTemporalWindow rejects windows where effective_from is not
	// strictly before effective_until.
	ErrInvalidTemporalWindow = errors.New("effective_from must be before effective_until")

	ErrInvalidRelationType     = errors.New("unknown relationship type")
	ErrInvalidConfidence       = errors.New("confidence must be between 0 and 1")
	ErrEmptyStatement          = errors.New("belief statement must not be empty")
	ErrInvalidResolution       = errors.New("unknown conflict resolution strategy")
	ErrConflictAlreadyResolved = errors.New("conflict is already resolved")

	// ErrGraphInconsistency reports a structural defect discovered during
	// traversal, such as a cycle in a deprecation chain.
	ErrGraphInconsistency = errors.New("knowledge graph inconsistency detected")
)
