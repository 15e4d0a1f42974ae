package models

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// patchOp is a single RFC 6902 operation
type patchOp struct {
	Op   string `json:"op"`
	Path string `json:"path"`
}

// RemovalPatch builds a JSON patch that removes every entry of seq for which
// drop returns true. Operations are emitted back to front so each index stays
// valid while the patch is applied. The second return value is the number of
// removals; a zero count yields a nil patch.
func RemovalPatch(seq []int64, drop func(id int64) bool) ([]byte, int, error) {
	var ops []patchOp
	for i := len(seq) - 1; i >= 0; i-- {
		if drop(seq[i]) {
			ops = append(ops, patchOp{Op: "remove", Path: fmt.Sprintf("/%d", i)})
		}
	}

	if len(ops) == 0 {
		return nil, 0, nil
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal sequence patch: %w", err)
	}
	return raw, len(ops), nil
}

// ApplySequencePatch applies a JSON patch to a sequence and returns the new sequence
func ApplySequencePatch(seq []int64, patch []byte) ([]int64, error) {
	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sequence patch: %w", err)
	}

	doc, err := json.Marshal(nonNil(seq))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sequence: %w", err)
	}

	patched, err := decoded.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply sequence patch: %w", err)
	}

	out := []int64{}
	if err := json.Unmarshal(patched, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched sequence: %w", err)
	}
	return out, nil
}

// Intersect keeps only the IDs of seq that are in members, preserving order.
// The result is never nil so it cannot be mistaken for a pending sequence.
func Intersect(seq []int64, members []int64) ([]int64, error) {
	set := make(map[int64]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}

	return filter(seq, func(id int64) bool {
		_, ok := set[id]
		return !ok
	})
}

// Without removes imageID from seq. The bool reports whether it was present.
func Without(seq []int64, imageID int64) ([]int64, bool, error) {
	out, err := filter(seq, func(id int64) bool { return id == imageID })
	if err != nil {
		return nil, false, err
	}
	return out, len(out) != len(seq), nil
}

// filter applies the RFC 6902 removal patch of drop to seq. Sequence edits
// are expressed as removal patches, the stored value is the patched array.
func filter(seq []int64, drop func(int64) bool) ([]int64, error) {
	patch, n, err := RemovalPatch(seq, drop)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return append([]int64{}, seq...), nil
	}
	return ApplySequencePatch(seq, patch)
}

func nonNil(seq []int64) []int64 {
	if seq == nil {
		return []int64{}
	}
	return seq
}
