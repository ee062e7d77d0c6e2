package compatibility

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const userV1 = `{
	"type": "record",
	"name": "User",
	"fields": [{"name": "id", "type": "long"}]
}`

const userV2AddedOptional = `{
	"type": "record",
	"name": "User",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "name", "type": "string", "default": ""}
	]
}`

const userV2AddedRequired = `{
	"type": "record",
	"name": "User",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "name", "type": "string"}
	]
}`

func TestIsBackward(t *testing.T) {
	require.True(t, NewChecker().IsBackward(userV1, userV2AddedOptional).IsCompatible)
	require.False(t, NewChecker().IsBackward(userV1, userV2AddedRequired).IsCompatible)
}

func TestIsForward_IsBackwardReversed(t *testing.T) {
	c := NewChecker()
	require.Equal(t,
		c.IsBackward(userV2AddedOptional, userV1).IsCompatible,
		c.IsForward(userV1, userV2AddedOptional).IsCompatible,
	)
}

func TestIsFull_RequiresBothDirections(t *testing.T) {
	c := NewChecker()
	// Adding a required field is forward-compatible but not
	// backward-compatible, so full must fail.
	require.False(t, c.IsFull(userV1, userV2AddedRequired).IsCompatible)
	require.True(t, c.IsFull(userV1, userV2AddedOptional).IsCompatible)
}

func TestIsTopicCompatible_EmptyTopicTriviallyCompatible(t *testing.T) {
	c := NewChecker()
	result := c.IsTopicCompatible(userV1, nil)
	require.True(t, result.IsCompatible)
}

func TestIsTopicCompatible_AllEnabledMustBeFullCompatible(t *testing.T) {
	c := NewChecker()
	enabled := []string{userV1}
	require.True(t, c.IsTopicCompatible(userV2AddedOptional, enabled).IsCompatible)
	require.False(t, c.IsTopicCompatible(userV2AddedRequired, enabled).IsCompatible)
}

func TestIsTopicCompatible_AccumulatesMessagesAcrossEnabledSchemas(t *testing.T) {
	c := NewChecker()
	// Both enabled schemas reject userV2AddedRequired; messages from each
	// incompatible comparison should all surface, not just the first.
	enabled := []string{userV1, userV1}
	result := c.IsTopicCompatible(userV2AddedRequired, enabled)
	require.False(t, result.IsCompatible)
	require.Len(t, result.Messages, 2)
}

func TestResult_Merge_IncompatibleIsSticky(t *testing.T) {
	// Once a Result turns incompatible, merging a later compatible result
	// into it must not clear the flag or drop the accumulated messages.
	r := &Result{IsCompatible: false, Messages: []string{"existing issue"}}
	r.Merge(&Result{IsCompatible: true})
	require.False(t, r.IsCompatible)
	require.Equal(t, []string{"existing issue"}, r.Messages)
}
