package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyspaceGetInsertDelete(t *testing.T) {
	ks := New()

	_, ok := ks.Get(0, "missing")
	assert.False(t, ok)

	ks.Insert(0, "greeting", StringValue([]byte("hello")), nil)
	e, ok := ks.Get(0, "greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", string(e.Value.Str))
	assert.Nil(t, e.Expiry)

	assert.True(t, ks.Delete(0, "greeting"))
	assert.False(t, ks.Delete(0, "greeting"))
	_, ok = ks.Get(0, "greeting")
	assert.False(t, ok)
}

func TestKeyspaceInsertOverwrites(t *testing.T) {
	ks := New()
	ks.Insert(0, "k", StringValue([]byte("one")), nil)
	ks.Insert(0, "k", StringValue([]byte("two")), &Expiry{Kind: ExpirySeconds, At: 100})

	e, ok := ks.Get(0, "k")
	require.True(t, ok)
	assert.Equal(t, "two", string(e.Value.Str))
	require.NotNil(t, e.Expiry)
	assert.Equal(t, uint64(100), e.Expiry.At)
}

func TestKeyspaceUnknownDatabase(t *testing.T) {
	ks := New()
	_, ok := ks.Keys(7)
	assert.False(t, ok)
	assert.Equal(t, 0, ks.DBSize(7))
}

func TestKeyspaceCreatesDatabaseLazily(t *testing.T) {
	ks := New()
	assert.Equal(t, 1, ks.DBCount())
	ks.Insert(3, "x", StringValue([]byte("y")), nil)
	assert.Equal(t, 2, ks.DBCount())

	keys, ok := ks.Keys(3)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, keys)
}

func TestExpiryExpiredAt(t *testing.T) {
	secExpiry := &Expiry{Kind: ExpirySeconds, At: 1000}
	assert.False(t, secExpiry.ExpiredAt(999_000))
	assert.True(t, secExpiry.ExpiredAt(1_000_000))

	msExpiry := &Expiry{Kind: ExpiryMilliseconds, At: 1_000_000}
	assert.False(t, msExpiry.ExpiredAt(999_999))
	assert.True(t, msExpiry.ExpiredAt(1_000_000))

	var nilExpiry *Expiry
	assert.False(t, nilExpiry.ExpiredAt(1 << 62))
}

func TestKeyspaceConcurrentAccess(t *testing.T) {
	ks := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k"
			ks.Insert(0, key, StringValue([]byte{byte(i)}), nil)
			ks.Get(0, key)
			ks.Delete(0, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, ks.DBCount())
}

func TestKeyspaceSnapshotIsolated(t *testing.T) {
	ks := New()
	ks.Insert(0, "a", StringValue([]byte("1")), nil)
	ks.Insert(0, "b", StringValue([]byte("2")), nil)

	snap := ks.Snapshot(0)
	require.Len(t, snap, 2)

	ks.Insert(0, "c", StringValue([]byte("3")), nil)
	assert.Len(t, snap, 2, "snapshot must not observe later writes")

	assert.ElementsMatch(t, []int{0}, ks.DBIndexes())
}
