//go:build linux

package equeue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonotonicClock(t *testing.T) {
	c, err := NewMonotonicClock()
	require.NoError(t, err)
	tstClock(t, c)

	q := newQueue(t, 4096, WithClock(c))
	ran := false
	_, err = q.CallIn(5*time.Millisecond, func(interface{}) { ran = true }, nil)
	require.NoError(t, err)
	q.Dispatch(30 * time.Millisecond)
	require.True(t, ran)
}
