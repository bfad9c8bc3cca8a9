package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		count    int
		perPage  int
		wantNum  int
		wantPags int
	}{
		{name: "empty listing", raw: "", count: 0, perPage: 4, wantNum: 1, wantPags: 1},
		{name: "first page by default", raw: "", count: 9, perPage: 4, wantNum: 1, wantPags: 3},
		{name: "non integer", raw: "abc", count: 9, perPage: 4, wantNum: 1, wantPags: 3},
		{name: "in range", raw: "2", count: 9, perPage: 4, wantNum: 2, wantPags: 3},
		{name: "beyond last", raw: "99", count: 9, perPage: 4, wantNum: 3, wantPags: 3},
		{name: "zero", raw: "0", count: 9, perPage: 4, wantNum: 3, wantPags: 3},
		{name: "negative", raw: "-1", count: 8, perPage: 4, wantNum: 2, wantPags: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(tt.raw, tt.count, tt.perPage)
			assert.Equal(t, tt.wantNum, p.Number)
			assert.Equal(t, tt.wantPags, p.NumPages)
			assert.Equal(t, p.Number < p.NumPages, p.HasNext)
			assert.Equal(t, p.Number > 1, p.HasPrev)
		})
	}
}

func TestPage_Bounds(t *testing.T) {
	p := NewPage("3", 9, 4)
	lo, hi := p.Bounds(9)
	assert.Equal(t, 8, lo)
	assert.Equal(t, 9, hi)

	p = NewPage("1", 0, 4)
	lo, hi = p.Bounds(0)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 0, hi)
}
