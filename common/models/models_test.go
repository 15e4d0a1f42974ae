package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "bada55", want: "BADA55"},
		{in: "BADA55", want: "BADA55"},
		{in: " C0ffee ", want: "C0FFEE"},
		{in: "", wantErr: true},
		{in: "bcdefg", wantErr: true},
		{in: "abcdef1", wantErr: true},
		{in: "#bada55", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeColor(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRGB(t *testing.T) {
	rgb, err := ParseRGB("bada55")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 0xBA, G: 0xDA, B: 0x55}, rgb)

	_, err = ParseRGB("nope")
	assert.Error(t, err)
}

func TestRemovalPatch_BackToFront(t *testing.T) {
	patch, n, err := RemovalPatch([]int64{1, 2, 3, 2}, func(id int64) bool { return id == 2 })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.JSONEq(t, `[{"op":"remove","path":"/3"},{"op":"remove","path":"/1"}]`, string(patch))

	patch, n, err = RemovalPatch([]int64{1}, func(int64) bool { return false })
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, patch)
}

func TestIntersect_PreservesOrder(t *testing.T) {
	got, err := Intersect([]int64{7, 3, 9}, []int64{3, 9})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, got)
}

func TestIntersect_EmptyIsNotPending(t *testing.T) {
	got, err := Intersect([]int64{7}, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWithout(t *testing.T) {
	got, removed, err := Without([]int64{5, 2, 8}, 2)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []int64{5, 8}, got)

	got, removed, err = Without([]int64{5, 8}, 42)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, []int64{5, 8}, got)
}

func TestComputationError_Unwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("rank: %w", NewComputationError("script", cause))

	var ce *ComputationError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestSequenceClone(t *testing.T) {
	s := &Sequence{Color: "BADA55", Sequence: []int64{1, 2}}
	c := s.Clone()
	c.Sequence[0] = 99
	assert.Equal(t, int64(1), s.Sequence[0])

	pending := (&Sequence{Color: "BADA55"}).Clone()
	assert.True(t, pending.Pending())
}
