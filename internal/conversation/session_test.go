package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMarksSentAndAppendsReply(t *testing.T) {
	t.Parallel()

	s := NewSession()
	now := time.Now()
	user := NewUserMessage("hello", now)
	s.Append(user)

	reply := NewAssistantMessage("hi there", nil, now.Add(time.Second))
	require.NoError(t, s.Resolve(user.Timestamp, reply))

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, StatusSent, msgs[0].Status)
	assert.Nil(t, msgs[0].Thinking)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
}

func TestResolveUnknownTimestampDropsReply(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.Append(NewUserMessage("hello", time.Now()))

	err := s.Resolve(12345, NewAssistantMessage("orphan", nil, time.Now()))
	require.Error(t, err)
	assert.Len(t, s.Messages(), 1)
}

func TestFailKeepsContentForRetry(t *testing.T) {
	t.Parallel()

	s := NewSession()
	user := NewUserMessage("try me", time.Now())
	s.Append(user)

	require.NoError(t, s.Fail(user.Timestamp))

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, StatusError, msgs[0].Status)
	assert.Equal(t, "try me", msgs[0].Content)
	assert.True(t, msgs[0].Retryable())
}

func TestRetryReusesSlotWithFreshTimestamp(t *testing.T) {
	t.Parallel()

	s := NewSession()
	then := time.Now().Add(-time.Minute)
	user := NewUserMessage("resend", then)
	s.Append(user)
	require.NoError(t, s.Fail(user.Timestamp))

	now := time.Now()
	retried, err := s.Retry(user.Timestamp, now)
	require.NoError(t, err)

	assert.Equal(t, StatusSending, retried.Status)
	assert.Equal(t, now.UnixMilli(), retried.Timestamp)
	assert.Len(t, s.Messages(), 1, "retry must not append a duplicate")
}

func TestRetryRejectsNonFailedSlots(t *testing.T) {
	t.Parallel()

	s := NewSession()
	user := NewUserMessage("pending", time.Now())
	s.Append(user)

	_, err := s.Retry(user.Timestamp, time.Now())
	assert.Error(t, err)
}

func TestDuplicateTimestampsResolveNewest(t *testing.T) {
	t.Parallel()

	s := NewSession()
	now := time.Now()
	a := NewUserMessage("first", now)
	b := NewUserMessage("second", now)
	s.Append(a)
	s.Append(b)

	require.NoError(t, s.Fail(a.Timestamp))

	msgs := s.Messages()
	assert.Equal(t, StatusSending, msgs[0].Status)
	assert.Equal(t, StatusError, msgs[1].Status)
}

func TestStartNewArmsForceNewOnce(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.SetActiveID("conv-1")
	s.Append(NewUserMessage("old", time.Now()))

	s.StartNew()
	assert.Empty(t, s.ActiveID())
	assert.Zero(t, s.Len())
	assert.True(t, s.ConsumeForceNew())
	assert.False(t, s.ConsumeForceNew(), "flag is one-shot")
}

func TestReplaceClearsForceNew(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.StartNew()
	s.Replace("conv-2", []Message{NewAssistantMessage("hi", nil, time.Now())})

	assert.Equal(t, "conv-2", s.ActiveID())
	assert.False(t, s.ConsumeForceNew())
}

func TestDropOnlyClearsMatchingThread(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.SetActiveID("conv-3")
	s.Append(NewUserMessage("hello", time.Now()))

	s.Drop("other")
	assert.Equal(t, "conv-3", s.ActiveID())
	assert.Len(t, s.Messages(), 1)

	s.Drop("conv-3")
	assert.Empty(t, s.ActiveID())
	assert.Empty(t, s.Messages())
	assert.True(t, s.ConsumeForceNew())
}

func TestHasPendingAndLastFailed(t *testing.T) {
	t.Parallel()

	s := NewSession()
	assert.False(t, s.HasPending())

	user := NewUserMessage("x", time.Now())
	s.Append(user)
	assert.True(t, s.HasPending())

	require.NoError(t, s.Fail(user.Timestamp))
	assert.False(t, s.HasPending())

	failed, ok := s.LastFailed()
	require.True(t, ok)
	assert.Equal(t, user.Timestamp, failed.Timestamp)
}
