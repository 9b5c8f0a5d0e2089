package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialTable(t *testing.T) {
	tbl := Exponential(time.Second, 5)
	assert.Equal(t, Table{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, tbl)
}

func TestTableAtClamps(t *testing.T) {
	tbl := Exponential(time.Second, 3)
	assert.Equal(t, time.Second, tbl.At(-1))
	assert.Equal(t, 2*time.Second, tbl.At(1))
	assert.Equal(t, 4*time.Second, tbl.At(10))
	assert.Equal(t, time.Duration(0), Table{}.At(2))
}

func TestExponentialRejectsBadInput(t *testing.T) {
	assert.Empty(t, Exponential(0, 5))
	assert.Empty(t, Exponential(time.Second, 0))
}
