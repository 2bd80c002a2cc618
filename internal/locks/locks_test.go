package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*RunLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRunLockWithClient(client), mr
}

func TestAcquireAndRelease(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()

	release2, err := lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestAcquireIndependentPairs(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	r1, err := lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	require.NoError(t, err)
	defer r1()

	// A different source for the same customer is not serialized against it.
	r2, err := lock.Acquire(ctx, "acme", "copilot_suricata", time.Minute)
	require.NoError(t, err)
	defer r2()

	// Nor is the same source for a different customer.
	r3, err := lock.Acquire(ctx, "globex", "copilot_wazuh", time.Minute)
	require.NoError(t, err)
	defer r3()
}

func TestLockExpires(t *testing.T) {
	lock, mr := newTestLock(t)
	ctx := context.Background()

	_, err := lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	release, err := lock.Acquire(ctx, "acme", "copilot_wazuh", time.Minute)
	require.NoError(t, err, "an expired lock from a crashed pass must be reacquirable")
	release()
}
