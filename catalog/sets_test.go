package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSet(t *testing.T) {
	assert.Equal(t, []string{"novel_wgs_original", "batch2"}, SplitSet("novel_wgs_original, batch2"))
	assert.Nil(t, SplitSet(""))
	assert.Nil(t, SplitSet("  "))
	assert.Equal(t, []string{"a"}, SplitSet(",a,,"))
}

func TestJoinSetSortsAndDeduplicates(t *testing.T) {
	assert.Equal(t, "a,b,c", JoinSet([]string{"c", "a", "b", "a", " b "}))
	assert.Equal(t, "", JoinSet(nil))
}

func TestUnionSet(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UnionSet([]string{"b", "a"}, []string{"c", "b"}))
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]string{"b", "a"}, []string{"a", "b", "b"}))
	assert.False(t, SameSet([]string{"a"}, []string{"a", "b"}))
	assert.True(t, SameSet(nil, []string{}))
}

func TestContainsAll(t *testing.T) {
	assert.True(t, ContainsAll([]string{"a", "b", "c"}, []string{"a", "c"}))
	assert.False(t, ContainsAll([]string{"a"}, []string{"a", "b"}))
	assert.True(t, ContainsAll(nil, nil))
}
