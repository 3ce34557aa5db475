package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		total     int64
		size      int
		raw       string
		wantPage  int
		wantPages int
		offset    int
	}{
		{"missing page", 25, 10, "", 1, 3, 0},
		{"non numeric", 25, 10, "abc", 1, 3, 0},
		{"zero", 25, 10, "0", 1, 3, 0},
		{"negative", 25, 10, "-4", 1, 3, 0},
		{"middle", 25, 10, "2", 2, 3, 10},
		{"past the end", 25, 10, "9999", 3, 3, 20},
		{"exact multiple", 20, 10, "2", 2, 2, 10},
		{"empty feed", 0, 10, "5", 1, 1, 0},
		{"default size", 11, 0, "2", 2, 2, 10},
		{"whitespace", 25, 10, " 2 ", 2, 3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.total, tt.size, tt.raw)
			assert.Equal(t, tt.wantPage, p.Number)
			assert.Equal(t, tt.wantPages, p.NumPages)
			assert.Equal(t, tt.offset, p.Offset())
		})
	}
}

func TestPageNavigation(t *testing.T) {
	t.Parallel()
	first := Paginate(50, 10, "1")
	assert.False(t, first.HasPrevious())
	assert.True(t, first.HasNext())
	assert.Equal(t, 2, first.NextNumber())
	assert.Equal(t, []int{1, 2, 3}, first.Numbers())

	middle := Paginate(50, 10, "3")
	assert.Equal(t, []int{1, 2, 3, 4, 5}, middle.Numbers())
	assert.Equal(t, 2, middle.PreviousNumber())

	only := Paginate(3, 10, "")
	assert.False(t, only.HasOtherPages())
	assert.Equal(t, []int{1}, only.Numbers())
}
