package gen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^CA60[0-9A-F]{20}$`)

func TestIDShape(t *testing.T) {
	ids := NewIDAllocator("path+file:///src/foo#0.1.0")
	for _, name := range []string{"", "Cargo.toml", "<root>", "with spaces", "ünïcode"} {
		id := ids.ID("ns", name)
		assert.Len(t, id, 24)
		assert.Regexp(t, idPattern, id)
	}
}

func TestIDDeterministic(t *testing.T) {
	a := NewIDAllocator("path+file:///src/foo#0.1.0")
	b := NewIDAllocator("path+file:///src/foo#0.1.0")
	assert.Equal(t, a.ID("", "Cargo.toml"), b.ID("", "Cargo.toml"))
}

func TestIDDistinct(t *testing.T) {
	ids := NewIDAllocator("path+file:///src/foo#0.1.0")
	other := NewIDAllocator("path+file:///src/bar#0.1.0")

	assert.NotEqual(t, ids.ID("", "Cargo.toml"), other.ID("", "Cargo.toml"), "package ids seed the allocator")
	assert.NotEqual(t, ids.ID("a", "b"), ids.ID("b", "a"))
	// the separator keeps namespace and name apart
	assert.NotEqual(t, ids.ID("ab", "c"), ids.ID("a", "bc"))
}
