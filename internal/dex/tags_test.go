package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderTagUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		tag := NewOrderTag()
		assert.NotEmpty(t, tag)
		_, dup := seen[tag]
		assert.False(t, dup, "tag %q repeated", tag)
		seen[tag] = struct{}{}
	}
}
