package tenant

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fyrsmithlabs/recalld/internal/blob"
)

// ErrCorruptSnapshot indicates a stored blob that cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Blob keys, namespaced per tenant and artifact kind. The vector blob is a
// flat little-endian float32 array of length dim*recordCount; the document
// blob is a JSON array of {text, timestamp} records in the same order.
func vectorKey(tenantID string) string {
	return fmt.Sprintf("embeddings/%s/%s_embeddings.f32", tenantID, tenantID)
}

func documentKey(tenantID string) string {
	return fmt.Sprintf("documents/%s/%s_documents.json", tenantID, tenantID)
}

// encodeVectors flattens vectors into a little-endian float32 byte array.
func encodeVectors(vectors [][]float32, dim int) []byte {
	buf := make([]byte, 0, len(vectors)*dim*4)
	var scratch [4]byte
	for _, vec := range vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			buf = append(buf, scratch[:]...)
		}
	}
	return buf
}

// decodeVectors reconstructs vectors from a flat float32 blob. The record
// count is derived from the blob length; a length that is not a multiple of
// dim*4 means the blob is truncated or was written with another dimension.
func decodeVectors(data []byte, dim int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", ErrCorruptSnapshot, dim)
	}
	recordSize := dim * 4
	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of record size %d", ErrCorruptSnapshot, len(data), recordSize)
	}

	count := len(data) / recordSize
	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		base := i * recordSize
		for j := 0; j < dim; j++ {
			bits := binary.LittleEndian.Uint32(data[base+j*4 : base+j*4+4])
			vec[j] = math.Float32frombits(bits)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// saveSnapshot persists the full current state for a tenant: overwrite
// semantics, last snapshot write wins across concurrent writers.
func saveSnapshot(ctx context.Context, store blob.Store, tenantID string, vectors [][]float32, documents []Document, dim int) error {
	docData, err := json.Marshal(documents)
	if err != nil {
		return fmt.Errorf("marshaling documents: %w", err)
	}

	if err := store.Put(ctx, vectorKey(tenantID), encodeVectors(vectors, dim)); err != nil {
		return fmt.Errorf("writing vector blob: %w", err)
	}
	if err := store.Put(ctx, documentKey(tenantID), docData); err != nil {
		return fmt.Errorf("writing document blob: %w", err)
	}
	return nil
}

// loadSnapshot restores a tenant's vectors and documents from the blob
// store. Index alignment is positional: record i of the vector blob pairs
// with record i of the document blob. If the two blobs disagree on record
// count, both are truncated to the shorter one so the alignment invariant
// holds.
func loadSnapshot(ctx context.Context, store blob.Store, tenantID string, dim int) ([][]float32, []Document, error) {
	vecData, err := store.Get(ctx, vectorKey(tenantID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading vector blob: %w", err)
	}
	docData, err := store.Get(ctx, documentKey(tenantID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading document blob: %w", err)
	}

	vectors, err := decodeVectors(vecData, dim)
	if err != nil {
		return nil, nil, err
	}

	var documents []Document
	if err := json.Unmarshal(docData, &documents); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding documents: %v", ErrCorruptSnapshot, err)
	}

	if len(vectors) != len(documents) {
		n := len(vectors)
		if len(documents) < n {
			n = len(documents)
		}
		vectors = vectors[:n]
		documents = documents[:n]
	}
	return vectors, documents, nil
}
