package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrie(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		trie := New().Put("hello", 42)

		value := Get[int](trie, "hello")
		assert.NotNil(t, value)
		assert.Equal(t, 42, *value)

		assert.Nil(t, Get[int](trie, "world"))
		assert.Nil(t, Get[int](trie, "hell"))
		assert.Nil(t, Get[int](trie, "helloo"))
	})

	t.Run("get with the wrong type returns nil", func(t *testing.T) {
		trie := New().Put("hello", 42)

		assert.Nil(t, Get[string](trie, "hello"))
		assert.NotNil(t, Get[int](trie, "hello"))
	})

	t.Run("put overwrites an existing value", func(t *testing.T) {
		trie := New().Put("hello", 1).Put("hello", 2)

		value := Get[int](trie, "hello")
		assert.NotNil(t, value)
		assert.Equal(t, 2, *value)
	})

	t.Run("the empty key stores a value at the root", func(t *testing.T) {
		trie := New().Put("", "root").Put("a", 1)

		value := Get[string](trie, "")
		assert.NotNil(t, value)
		assert.Equal(t, "root", *value)

		assert.NotNil(t, Get[int](trie, "a"))
	})

	t.Run("keys can be prefixes of each other", func(t *testing.T) {
		trie := New().Put("hell", 1).Put("hello", 2).Put("help", 3)

		assert.Equal(t, 1, *Get[int](trie, "hell"))
		assert.Equal(t, 2, *Get[int](trie, "hello"))
		assert.Equal(t, 3, *Get[int](trie, "help"))
	})

	t.Run("put leaves the old trie untouched", func(t *testing.T) {
		trie1 := New().Put("hello", 1)
		trie2 := trie1.Put("hello", 2)
		trie3 := trie2.Put("world", 3)

		assert.Equal(t, 1, *Get[int](trie1, "hello"))
		assert.Equal(t, 2, *Get[int](trie2, "hello"))
		assert.Nil(t, Get[int](trie1, "world"))
		assert.Equal(t, 3, *Get[int](trie3, "world"))
	})

	t.Run("unchanged subtrees are shared between versions", func(t *testing.T) {
		trie1 := New().Put("aa", 1).Put("bb", 2)
		trie2 := trie1.Put("bb", 3)

		// putting under 'b' must not copy the 'a' subtree
		assert.Same(t, trie1.root.children['a'], trie2.root.children['a'])
		assert.NotSame(t, trie1.root.children['b'], trie2.root.children['b'])
	})
}

func TestTrieRemove(t *testing.T) {
	t.Run("removes a value and prunes empty nodes", func(t *testing.T) {
		trie := New().Put("hello", 1).Remove("hello")

		assert.Nil(t, Get[int](trie, "hello"))
		assert.Nil(t, trie.root)
	})

	t.Run("keeps nodes that still carry values", func(t *testing.T) {
		trie := New().Put("hell", 1).Put("hello", 2).Remove("hello")

		assert.Nil(t, Get[int](trie, "hello"))
		assert.Equal(t, 1, *Get[int](trie, "hell"))
	})

	t.Run("keeps nodes that still have children", func(t *testing.T) {
		trie := New().Put("hell", 1).Put("hello", 2).Remove("hell")

		assert.Nil(t, Get[int](trie, "hell"))
		assert.Equal(t, 2, *Get[int](trie, "hello"))
	})

	t.Run("removing an absent key returns the same trie", func(t *testing.T) {
		trie := New().Put("hello", 1)

		assert.Same(t, trie.root, trie.Remove("world").root)
		assert.Same(t, trie.root, trie.Remove("hell").root)
		assert.Nil(t, New().Remove("hello").root)
	})

	t.Run("remove leaves the old trie untouched", func(t *testing.T) {
		trie1 := New().Put("hello", 1)
		trie2 := trie1.Remove("hello")

		assert.Equal(t, 1, *Get[int](trie1, "hello"))
		assert.Nil(t, Get[int](trie2, "hello"))
	})

	t.Run("removing the root value keeps the children", func(t *testing.T) {
		trie := New().Put("", "root").Put("a", 1).Remove("")

		assert.Nil(t, Get[string](trie, ""))
		assert.Equal(t, 1, *Get[int](trie, "a"))
	})
}
