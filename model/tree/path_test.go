package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      string
	}{
		{description: "empty", input: "", expect: "/"},
		{description: "root", input: "/", expect: "/"},
		{description: "relative", input: "a/b", expect: "/a/b"},
		{description: "repeated slashes", input: "//a///b//", expect: "/a/b"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Normalize(testCase.input))
		})
	}
}

func TestParent(t *testing.T) {
	parent, name := Parent("/A/b.txt")
	assert.Equal(t, "/A", parent)
	assert.Equal(t, "b.txt", name)

	parent, name = Parent("/A")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "A", name)

	parent, name = Parent("/")
	assert.Equal(t, "/", parent)
	assert.Equal(t, "", name)
}

func TestWithin(t *testing.T) {
	var testCases = []struct {
		p, ancestor string
		expect      bool
	}{
		{p: "/a/b", ancestor: "/a", expect: true},
		{p: "/a", ancestor: "/a", expect: true},
		{p: "/ab", ancestor: "/a", expect: false},
		{p: "/b", ancestor: "/", expect: true},
		{p: "/a", ancestor: "/a/b", expect: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.p+" in "+testCase.ancestor, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Within(testCase.p, testCase.ancestor))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "ab.txt", SanitizeName("a\x00b\x1f.txt\x7f"))
	assert.Equal(t, "plain", SanitizeName("plain"))
}
