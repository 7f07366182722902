package vectorstore

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperjump/promptrepo/internal/vector"
)

// layout names the blobs that make up one store:
//
//	<prefix>matrix.bin          matrix blob, the commit point
//	<prefix>ids/<token>.json    id list referenced by the matrix header
type layout struct {
	prefix string
}

func (l layout) matrixKey() string {
	return l.prefix + "matrix.bin"
}

func (l layout) idsKey(token [16]byte) string {
	return l.prefix + "ids/" + uuid.UUID(token).String() + ".json"
}

func encodeIDs(ids []string) ([]byte, [32]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("encode id list: %w", err)
	}
	return data, sha256.Sum256(data), nil
}

func decodeIDs(data []byte, digest [32]byte) ([]string, error) {
	if sha256.Sum256(data) != digest {
		return nil, fmt.Errorf("%w: id list digest does not match matrix header", vector.ErrCorrupt)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: id list: %v", vector.ErrCorrupt, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
