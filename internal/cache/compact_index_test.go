package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactIndex_PutGet(t *testing.T) {
	ix := NewCompactIndex[string, string]()

	ix.Put("k1", "v1")
	ix.Put("k2", "v2")

	v, ok := ix.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	// Put on an existing key replaces the value.
	ix.Put("k1", "v1b")
	v, ok = ix.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1b", v)
	assert.Equal(t, 2, ix.Len())
}

func TestCompactIndex_GetMissing(t *testing.T) {
	ix := NewCompactIndex[string, int]()

	_, ok := ix.Get("nope")
	assert.False(t, ok)
}

func TestCompactIndex_Remove(t *testing.T) {
	ix := NewCompactIndex[string, int]()

	ix.Put("a", 1)
	ix.Put("b", 2)
	ix.Put("c", 3)

	ix.Remove("b")
	_, ok := ix.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, ix.Len())

	// Removing a missing key is a no-op.
	ix.Remove("b")
	assert.Equal(t, 2, ix.Len())

	// Survivors are still reachable after the swap-remove.
	for key, want := range map[string]int{"a": 1, "c": 3} {
		v, ok := ix.Get(key)
		assert.True(t, ok, "key %s", key)
		assert.Equal(t, want, v)
	}
}

func TestCompactIndex_InsertionOrderIrrelevant(t *testing.T) {
	orders := [][]string{
		{"a", "b", "c"},
		{"c", "a", "b"},
		{"b", "c", "a"},
	}

	for i, order := range orders {
		t.Run(fmt.Sprintf("order_%d", i), func(t *testing.T) {
			ix := NewCompactIndex[string, string]()
			for _, k := range order {
				ix.Put(k, "val-"+k)
			}
			for _, k := range []string{"a", "b", "c"} {
				v, ok := ix.Get(k)
				assert.True(t, ok)
				assert.Equal(t, "val-"+k, v)
			}
		})
	}
}

func TestCompactIndex_RemoveFunc(t *testing.T) {
	ix := NewCompactIndex[string, int]()

	ix.Put("t1/orders", 1)
	ix.Put("t1/prescriptions", 2)
	ix.Put("t2/orders", 3)
	ix.Put("t1/refills", 4)

	ix.RemoveFunc(func(k string) bool { return len(k) > 2 && k[:3] == "t1/" })

	assert.Equal(t, 1, ix.Len())
	_, ok := ix.Get("t2/orders")
	assert.True(t, ok)
}

func TestCompactIndex_Clear(t *testing.T) {
	ix := NewCompactIndex[int, int]()
	for i := 0; i < 10; i++ {
		ix.Put(i, i*i)
	}

	ix.Clear()
	assert.Equal(t, 0, ix.Len())
	_, ok := ix.Get(3)
	assert.False(t, ok)
}
