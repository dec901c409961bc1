package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesCurrentValueImmediately(t *testing.T) {
	s := New(42)

	var got []int
	unsub := s.Subscribe(func(v int) { got = append(got, v) })
	defer unsub()

	require.Equal(t, []int{42}, got)
}

func TestSet_NotifiesSubscribers(t *testing.T) {
	s := New("a")

	var got []string
	unsub := s.Subscribe(func(v string) { got = append(got, v) })
	defer unsub()

	s.Set("b")
	s.Set("c")

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, "c", s.Get())
}

func TestUpdate_AppliesFunction(t *testing.T) {
	s := New(1)
	s.Update(func(v int) int { return v + 10 })
	assert.Equal(t, 11, s.Get())
}

func TestUnsubscribe_StopsNotifications(t *testing.T) {
	s := New(0)

	count := 0
	unsub := s.Subscribe(func(int) { count++ })
	unsub()
	unsub() // idempotent

	s.Set(1)
	assert.Equal(t, 1, count, "only the initial call should have been delivered")
}
