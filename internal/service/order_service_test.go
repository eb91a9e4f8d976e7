package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNoFormat(t *testing.T) {
	no := newOrderNo()

	assert.True(t, strings.HasPrefix(no, "ORD-"))
	assert.Len(t, no, len("ORD-")+32)
	assert.Equal(t, strings.ToUpper(no), no)
}

func TestNewOrderNoUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		no := newOrderNo()
		assert.False(t, seen[no], "duplicate order number: %s", no)
		seen[no] = true
	}
}
