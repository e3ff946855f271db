package ports

import "github.com/aretw0/otec/pkg/domain"

// MutationCodec converts mutations to and from the plain maps stored in a domain.Record.
type MutationCodec interface {
	Encode(m domain.Mutation) (map[string]any, error)
	Decode(raw map[string]any) (domain.Mutation, error)
}

// Transformer resolves two concurrent operations on the same entity.
//
// The returned pair holds local' (to apply after remote) as Local and remote'
// (to apply after local) as Remote. Applying local then remote' must converge
// with applying remote then local'.
type Transformer interface {
	Transform(local, remote *domain.Operation) (domain.TransformPair, error)
}
