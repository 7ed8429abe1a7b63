package dirtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkAndContains(t *testing.T) {
	var tree Tree
	assert.False(t, tree.Contains("trunk"))

	tree.Mark("trunk", true)
	assert.True(t, tree.Contains("trunk"))
	assert.False(t, tree.Contains("trunk/file.txt"))

	tree.Mark("trunk/file.txt", false)
	assert.True(t, tree.Contains("trunk/file.txt"))
}

func TestContainsRoot(t *testing.T) {
	var tree Tree
	assert.True(t, tree.Contains(""), "the repository root always exists")
	assert.True(t, tree.Contains("/"))
}

func TestMissingAncestors(t *testing.T) {
	var tree Tree
	missing := tree.MissingAncestors("a/b/c/d.txt")
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, missing)

	tree.Mark("a", true)
	tree.Mark("a/b", true)
	missing = tree.MissingAncestors("a/b/c/d.txt")
	assert.Equal(t, []string{"a/b/c"}, missing)

	tree.Mark("a/b/c", true)
	missing = tree.MissingAncestors("a/b/c/d.txt")
	assert.Empty(t, missing)
}

func TestMissingAncestorsTopLevel(t *testing.T) {
	var tree Tree
	assert.Empty(t, tree.MissingAncestors("trunk"), "a top-level path has no ancestors")
}

func TestForgetRemovesSubtree(t *testing.T) {
	var tree Tree
	tree.Mark("a", true)
	tree.Mark("a/b", true)
	tree.Mark("a/b/c.txt", false)

	tree.Forget("a/b")
	assert.True(t, tree.Contains("a"))
	assert.False(t, tree.Contains("a/b"))
	assert.False(t, tree.Contains("a/b/c.txt"))
}

func TestForgetThenReaddTriggersAncestorSynthesis(t *testing.T) {
	var tree Tree
	tree.Mark("a", true)
	tree.Mark("a/b", true)

	tree.Forget("a/b")
	missing := tree.MissingAncestors("a/b/c.txt")
	assert.Equal(t, []string{"a/b"}, missing)
}
