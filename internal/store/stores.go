package store

import "github.com/credo-ai/credo/internal/domain"

// Compile-time interface checks.
var (
	_ domain.BeliefStore       = (*BeliefStore)(nil)
	_ domain.RelationshipStore = (*RelationshipStore)(nil)
	_ domain.ConflictStore     = (*ConflictStore)(nil)
)
