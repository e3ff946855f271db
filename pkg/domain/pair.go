package domain

// TransformPair couples two operations that were transformed against each other.
//
// A Transformer returns the pair of transformed operations. Each transformed
// operation references, through TransformedFrom, the input pair seen from its own
// side: Remote is always the operation it supersedes.
type TransformPair struct {
	Local  *Operation
	Remote *Operation
}

// NewTransformPair builds a pair.
func NewTransformPair(local, remote *Operation) *TransformPair {
	return &TransformPair{Local: local, Remote: remote}
}

// Swap returns the pair seen from the other side.
func (p *TransformPair) Swap() *TransformPair {
	return &TransformPair{Local: p.Remote, Remote: p.Local}
}
