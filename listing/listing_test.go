package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginate(t *testing.T) {
	p := Paginate(seq(25), 1, 10)
	assert.Equal(t, seq(10), p.Items)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 25, p.Total)

	p = Paginate(seq(25), 3, 10)
	assert.Equal(t, []int{21, 22, 23, 24, 25}, p.Items)
	assert.Equal(t, 3, p.Number)
}

func TestPaginateClamps(t *testing.T) {
	p := Paginate(seq(12), 9, 10)
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, []int{11, 12}, p.Items)

	p = Paginate(seq(12), 0, 10)
	assert.Equal(t, 1, p.Number)
	assert.Len(t, p.Items, 10)
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]string{}, 1, 15)
	assert.Equal(t, 0, p.Pages)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}

func TestPaginateCopies(t *testing.T) {
	items := seq(3)
	p := Paginate(items, 1, 10)
	p.Items[0] = 99
	assert.Equal(t, 1, items[0])
}
