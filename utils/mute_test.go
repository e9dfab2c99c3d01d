package utils

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestBatchMute(t *testing.T) {
	mock := clock.NewMock()
	bm := NewBatchMute(mock, 10*time.Second, 5)

	var muted int
	for i := 0; i < 8; i++ {
		mock.Add(time.Second)
		if m, _ := bm.Increment(); m {
			muted++
		}
	}
	assert.Equal(t, 3, muted)

	mock.Add(10 * time.Second)
	m, skipped := bm.Increment()
	assert.False(t, m)
	assert.Equal(t, 3, skipped)

	_, skipped = bm.Increment()
	assert.Zero(t, skipped)
}

func TestBatchMuteZero(t *testing.T) {
	mock := clock.NewMock()
	bm := NewBatchMute(mock, 10*time.Second, 0)

	for i := 0; i < 20; i++ {
		mock.Add(time.Second)
		m, skipped := bm.Increment()
		assert.False(t, m)
		assert.Zero(t, skipped)
	}
}

func TestBatchMuteInterval(t *testing.T) {
	mock := clock.NewMock()
	bm := NewBatchMute(mock, 0, 5)

	for i := 0; i < 20; i++ {
		mock.Add(time.Second)
		m, _ := bm.Increment()
		assert.False(t, m)
	}
}
