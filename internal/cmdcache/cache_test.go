package cmdcache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/nullsem"
	"github.com/roach88/relq/internal/querysql"
)

func entry(sql string) *Entry {
	return &Entry{Command: &querysql.Command{SQL: sql}}
}

func TestCache_GetAdd(t *testing.T) {
	c := New(4)
	k := Key{ShapeHash: "h1", NullSignature: "p=V", Dialect: "standard", Mode: "normalized"}

	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Add(k, entry("SELECT 1"))
	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", got.Command.SQL)

	for _, other := range []Key{
		{ShapeHash: "h2", NullSignature: "p=V", Dialect: "standard", Mode: "normalized"},
		{ShapeHash: "h1", NullSignature: "p=N", Dialect: "standard", Mode: "normalized"},
		{ShapeHash: "h1", NullSignature: "p=V", Dialect: "sqlite", Mode: "normalized"},
		{ShapeHash: "h1", NullSignature: "p=V", Dialect: "standard", Mode: "raw"},
	} {
		_, ok := c.Get(other)
		assert.False(t, ok, "%+v", other)
	}

	assert.Equal(t, Stats{Hits: 1, Misses: 5}, c.Stats())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	k1, k2, k3 := Key{ShapeHash: "1"}, Key{ShapeHash: "2"}, Key{ShapeHash: "3"}

	c.Add(k1, entry("one"))
	c.Add(k2, entry("two"))
	_, ok := c.Get(k1)
	require.True(t, ok)
	c.Add(k3, entry("three"))

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(k2)
	assert.False(t, ok, "k2 was least recently used")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_Clear(t *testing.T) {
	c := New(0)
	c.Add(Key{ShapeHash: "1"}, entry("one"))
	c.Add(Key{ShapeHash: "2"}, entry("two"))
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(8)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := Key{ShapeHash: fmt.Sprint(i % 4)}
			c.Add(k, entry(k.ShapeHash))
			if e, ok := c.Get(k); ok {
				assert.NotEmpty(t, e.Command.SQL)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 4)
}

func TestNullSignature(t *testing.T) {
	tests := []struct {
		name   string
		params nullsem.Parameters
		want   string
	}{
		{"empty", nil, ""},
		{"sorted", nullsem.Parameters{"b": ir.IRInt(1), "a": ir.IRNull{}}, "a=N|b=V"},
		{"nil value is null", nullsem.Parameters{"x": nil}, "x=N"},
		{"empty string is a value", nullsem.Parameters{"s": ir.IRString("")}, "s=V"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NullSignature(tt.params))
		})
	}
}
