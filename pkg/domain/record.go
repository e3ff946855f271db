package domain

// Record is the persisted form of a committed operation.
// Mutations are stored in the representation produced by a MutationCodec.
type Record struct {
	OperationID      string           `json:"operation_id"`
	AgentID          string           `json:"agent_id"`
	EntityID         int              `json:"entity_id"`
	Revision         int              `json:"revision"`
	RevisionHash     string           `json:"revision_hash"`
	Propagate        bool             `json:"propagate"`
	Canon            bool             `json:"canon"`
	ResolvedConflict bool             `json:"resolved_conflict,omitempty"`
	Mutations        []map[string]any `json:"mutations"`
}

// NewRecord captures op with already encoded mutations.
func NewRecord(op *Operation, mutations []map[string]any) Record {
	return Record{
		OperationID:      op.ID().String(),
		AgentID:          op.AgentID(),
		EntityID:         op.EntityID(),
		Revision:         op.Revision(),
		RevisionHash:     op.RevisionHash(),
		Propagate:        op.ShouldPropagate(),
		Canon:            op.IsCanon(),
		ResolvedConflict: op.IsResolvedConflict(),
		Mutations:        mutations,
	}
}
