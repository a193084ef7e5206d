package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaydesk/inbox-pilot/constants"
)

func TestStoreLazyDefault(t *testing.T) {
	s := newItemStore()

	st := s.Get("never-seen.md")
	assert.Equal(t, constants.ItemStatusNew, st.Status)
	assert.False(t, s.Has("never-seen.md"), "Get must not materialize a record")
	assert.Empty(t, s.Snapshot())
}

func TestStoreProcessingClearsError(t *testing.T) {
	s := newItemStore()

	s.SetError("a.md", "boom")
	assert.Equal(t, "boom", s.Get("a.md").LastError)

	st := s.SetProcessing("a.md")
	assert.Equal(t, constants.ItemStatusProcessing, st.Status)
	assert.Empty(t, st.LastError)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := newItemStore()
	s.SetProcessed("a.md")

	snap := s.Snapshot()
	snap["a.md"] = ItemState{Status: constants.ItemStatusError, LastError: "tampered"}

	assert.Equal(t, constants.ItemStatusProcessed, s.Get("a.md").Status)
}

func TestCancelSetConsumeOnce(t *testing.T) {
	c := newCancelSet()

	c.Request("a.md")
	assert.True(t, c.Consume("a.md"))
	assert.False(t, c.Consume("a.md"), "a mark is consumed at most once")
}

func TestCancelSetClearAndReset(t *testing.T) {
	c := newCancelSet()

	c.Request("a.md")
	c.Clear("a.md")
	assert.False(t, c.Consume("a.md"))

	c.Request("a.md")
	c.Request("b.md")
	c.Reset()
	assert.False(t, c.Consume("a.md"))
	assert.False(t, c.Consume("b.md"))
}
