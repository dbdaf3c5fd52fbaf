package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(60))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())

	assert.ErrorIs(t, c.AcquireMemory(50), ErrMemoryLimitExceeded)

	c.ReleaseMemory(60)
	assert.Equal(t, int64(0), c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(100))
}

func TestController_AcquireMatrix(t *testing.T) {
	assert.Equal(t, int64(400), MatrixBytes(10))

	c := NewController(Config{MemoryLimitBytes: MatrixBytes(10)})
	release, err := c.AcquireMatrix(10)
	require.NoError(t, err)
	assert.Equal(t, MatrixBytes(10), c.MemoryUsage())

	_, err = c.AcquireMatrix(1)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)

	release()
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestController_Unlimited(t *testing.T) {
	c := NewController(Config{})
	require.NoError(t, c.AcquireMemory(1<<40))
	assert.Equal(t, int64(1<<40), c.MemoryUsage())
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestController_Nil(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
	require.NoError(t, c.AcquireIO(context.Background(), 10))

	release, err := c.AcquireMatrix(1000)
	require.NoError(t, err)
	release()
}

func TestController_AcquireIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1000})

	// Larger than the burst: must be split rather than rejected.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AcquireIO(ctx, 1500))

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.Error(t, c.AcquireIO(cancelled, 5000))
}
