package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpertSetAddIsIdempotent(t *testing.T) {
	set := NewExpertSet()

	assert.True(t, set.Add("expert-1"))
	assert.False(t, set.Add("expert-1"))
	assert.True(t, set.Add("expert-2"))

	assert.True(t, set.Has("expert-1"))
	assert.False(t, set.Has("expert-3"))
	assert.Equal(t, []string{"expert-1", "expert-2"}, set.Values())
}

func TestExpertSetJSONRoundTrip(t *testing.T) {
	set := NewExpertSet("b", "a", "a")

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var decoded ExpertSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"a", "b"}, decoded.Values())
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to RequestStatus }{
		{RequestStatusOpen, RequestStatusClaimed},
		{RequestStatusOpen, RequestStatusCancelled},
		{RequestStatusOpen, RequestStatusExpired},
		{RequestStatusClaimed, RequestStatusInProgress},
		{RequestStatusClaimed, RequestStatusOpen},
		{RequestStatusClaimed, RequestStatusExpired},
		{RequestStatusInProgress, RequestStatusCompleted},
		{RequestStatusInProgress, RequestStatusCancelled},
		{RequestStatusCompleted, RequestStatusInProgress},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to RequestStatus }{
		{RequestStatusOpen, RequestStatusInProgress},
		{RequestStatusOpen, RequestStatusCompleted},
		{RequestStatusClaimed, RequestStatusCompleted},
		{RequestStatusInProgress, RequestStatusOpen},
		{RequestStatusInProgress, RequestStatusExpired},
		{RequestStatusCompleted, RequestStatusCancelled},
		{RequestStatusCompleted, RequestStatusOpen},
		{RequestStatusCancelled, RequestStatusOpen},
		{RequestStatusExpired, RequestStatusOpen},
		{RequestStatusExpired, RequestStatusClaimed},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPriorityRankOrdersUrgencyDescending(t *testing.T) {
	assert.Greater(t, PriorityRank(RequestPriorityCritical), PriorityRank(RequestPriorityHigh))
	assert.Greater(t, PriorityRank(RequestPriorityHigh), PriorityRank(RequestPriorityNormal))
	assert.Greater(t, PriorityRank(RequestPriorityNormal), PriorityRank(RequestPriorityLow))
	assert.Equal(t, 0, PriorityRank(RequestPriority("bogus")))
}

func TestHelpRequestAssignmentAndTerminalState(t *testing.T) {
	expertID := "expert-1"
	request := &HelpRequest{Status: RequestStatusClaimed, AssignedExpertID: &expertID}

	assert.True(t, request.IsAssignedTo("expert-1"))
	assert.False(t, request.IsAssignedTo("expert-2"))
	assert.False(t, request.IsTerminal())

	request.Status = RequestStatusCancelled
	assert.True(t, request.IsTerminal())
	request.Status = RequestStatusExpired
	assert.True(t, request.IsTerminal())
	request.Status = RequestStatusCompleted
	assert.False(t, request.IsTerminal())
}
