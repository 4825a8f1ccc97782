package vset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	key int
	tag string
}

func (i item) Key() int { return i.key }

func lessInt(a, b int) bool { return a < b }

type delta struct {
	key        int
	newer, old *string
}

func collect(t *testing.T) (*Set[int, item], *[]delta) {
	t.Helper()
	deltas := &[]delta{}
	cb := func(newer, older *item) {
		d := delta{}
		if newer != nil {
			d.key = newer.key
			tag := newer.tag
			d.newer = &tag
		}
		if older != nil {
			d.key = older.key
			tag := older.tag
			d.old = &tag
		}
		*deltas = append(*deltas, d)
	}
	return New[int, item](lessInt, cb), deltas
}

func TestVSetMinimalityAndOrdering(t *testing.T) {
	s, deltas := collect(t)

	s.Update()
	s.Add(item{1, "a"})
	s.Add(item{5, "b"})
	s.Add(item{3, "c"})
	s.Flush()

	require.Len(t, *deltas, 3)
	// ascending key order
	assert.Equal(t, []int{1, 3, 5}, []int{(*deltas)[0].key, (*deltas)[1].key, (*deltas)[2].key})
	for _, d := range *deltas {
		assert.Nil(t, d.old)
		require.NotNil(t, d.newer)
	}

	*deltas = nil
	s.Update()
	s.Add(item{1, "a"})   // unchanged key -> keep-shaped delta (new, old)
	s.Add(item{3, "c2"})  // changed value, same key
	// key 5 dropped -> removal
	s.Add(item{7, "d"}) // new key -> pure add
	s.Flush()

	byKey := map[int]delta{}
	for _, d := range *deltas {
		byKey[d.key] = d
	}
	require.Len(t, *deltas, 4) // keys 1,3,5,7

	require.Contains(t, byKey, 1)
	assert.NotNil(t, byKey[1].newer)
	assert.NotNil(t, byKey[1].old)

	require.Contains(t, byKey, 3)
	assert.Equal(t, "c2", *byKey[3].newer)
	assert.Equal(t, "c", *byKey[3].old)

	require.Contains(t, byKey, 5)
	assert.Nil(t, byKey[5].newer)
	assert.NotNil(t, byKey[5].old)

	require.Contains(t, byKey, 7)
	assert.NotNil(t, byKey[7].newer)
	assert.Nil(t, byKey[7].old)
}

func TestVSetNoCallbackForUntouchedKeys(t *testing.T) {
	s, deltas := collect(t)

	s.Update()
	s.Add(item{1, "a"})
	s.Add(item{2, "b"})
	s.Flush()
	*deltas = nil

	s.Update()
	s.Add(item{1, "a"}) // re-add both keys unchanged
	s.Add(item{2, "b"})
	s.Flush()

	// both keys reappear unchanged: still one callback each (keep-shaped),
	// but no *extra* callbacks beyond the two touched keys.
	require.Len(t, *deltas, 2)
}

func TestVSetForEachOrder(t *testing.T) {
	s, _ := collect(t)
	s.Update()
	s.Add(item{9, "x"})
	s.Add(item{2, "y"})
	s.Add(item{5, "z"})
	s.Flush()

	var order []int
	s.ForEach(func(v *item) { order = append(order, v.key) })
	assert.Equal(t, []int{2, 5, 9}, order)
}

func TestVSetFlushAll(t *testing.T) {
	s, deltas := collect(t)
	s.Update()
	s.Add(item{1, "a"})
	s.Add(item{2, "b"})
	s.Flush()
	*deltas = nil

	s.FlushAll()
	require.Len(t, *deltas, 2)
	for _, d := range *deltas {
		assert.Nil(t, d.newer)
		assert.NotNil(t, d.old)
	}
	assert.Equal(t, 0, s.Len())
}

func TestSimpleListEpochReplace(t *testing.T) {
	l := NewSimpleList[string]()
	l.Update()
	l.Add("a")
	l.Add("b")
	l.Flush()
	assert.Equal(t, []string{"a", "b"}, l.Values())

	l.Update()
	l.Add("c")
	l.Flush()
	assert.Equal(t, []string{"c"}, l.Values())

	l.FlushAll()
	assert.Empty(t, l.Values())
}
