package domain

import (
	"encoding/json"
	"fmt"
)

// EmbeddingDim is the vector length produced by the extraction model. The
// enrollment schema pins the same width, so it is enforced once at the
// enrollment boundary rather than surfacing later as a storage error.
const EmbeddingDim = 128

// Embedding is a fixed-length face feature vector produced by the external
// extraction model. Comparisons stay dimension-checked at the point of use;
// only enrollment requires EmbeddingDim.
type Embedding []float64

// EmbeddingSet holds all enrollment samples for one identity, ordered as
// enrolled. Samples are immutable once written; re-enrollment replaces the
// whole set.
//
// The legacy storage shape is either a single vector or a list of vectors,
// decided by runtime inspection. That ambiguity is resolved exactly once,
// here, at the decoding boundary: both shapes unmarshal into the uniform
// list form, and a set always marshals back as a list.
type EmbeddingSet []Embedding

func (s *EmbeddingSet) UnmarshalJSON(data []byte) error {
	var multiple []Embedding
	if err := json.Unmarshal(data, &multiple); err == nil {
		*s = multiple
		return nil
	}

	var single Embedding
	if err := json.Unmarshal(data, &single); err == nil {
		*s = EmbeddingSet{single}
		return nil
	}

	return fmt.Errorf("embedding set is neither a vector nor a list of vectors")
}

func (s EmbeddingSet) MarshalJSON() ([]byte, error) {
	return json.Marshal([]Embedding(s))
}

// IdentityEmbeddings pairs an identity with its decoded enrollment set.
// Identity ids are stable numeric identifiers assigned by the caller.
type IdentityEmbeddings struct {
	IdentityID int64
	Set        EmbeddingSet
}
