package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"climate-odds/internal/models"
)

// EncodeResult serializes a result payload into its canonical form and
// returns the serialization together with its content hash. encoding/json
// emits struct fields in declaration order and map keys sorted, so identical
// payloads always produce identical bytes and identical hashes; the hash
// column backs idempotent dedup checks in the store.
func EncodeResult(payload models.AnalyzeResult) (json.RawMessage, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(data)
	return data, hex.EncodeToString(sum[:]), nil
}
