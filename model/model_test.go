package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendshipIsCounterpartOf(t *testing.T) {
	ab := &Friendship{UserName: "a", FriendUserName: "b"}
	ba := &Friendship{UserName: "b", FriendUserName: "a"}
	ac := &Friendship{UserName: "a", FriendUserName: "c"}
	self := &Friendship{UserName: "a", FriendUserName: "a"}

	assert.True(t, ab.IsCounterpartOf(ba))
	assert.True(t, ba.IsCounterpartOf(ab))
	assert.False(t, ab.IsCounterpartOf(ac))
	assert.False(t, self.IsCounterpartOf(self))
	assert.False(t, ab.IsCounterpartOf(nil))
}

func TestFriendshipDirection(t *testing.T) {
	sent := &Friendship{Accepted: true}
	received := &Friendship{}
	mutual := &Friendship{Accepted: true, AreFriends: true}

	assert.True(t, sent.IsOutgoing())
	assert.False(t, received.IsOutgoing())
	assert.True(t, received.IsPending())
	assert.False(t, mutual.IsPending())
	assert.False(t, mutual.IsOutgoing())
}

func TestProfilePatchColumns(t *testing.T) {
	status := "busy"
	patch := ProfilePatch{Status: &status}

	assert.False(t, patch.IsEmpty())
	assert.Equal(t, map[string]any{"status": "busy"}, patch.Columns())
	assert.True(t, ProfilePatch{}.IsEmpty())
}
