package concurrent

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllWaitsAndReportsError(t *testing.T) {
	var done atomic.Int32
	boom := errors.New("boom")

	err := All(
		func() error { time.Sleep(10 * time.Millisecond); done.Add(1); return nil },
		nil,
		func() error { done.Add(1); return boom },
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), done.Load())
}

func TestAllEmpty(t *testing.T) {
	assert.NoError(t, All())
}

func TestEachRunsEveryFunc(t *testing.T) {
	var n atomic.Int32
	Each(func() { n.Add(1) }, nil, func() { n.Add(2) })
	assert.Equal(t, int32(3), n.Load())
}
