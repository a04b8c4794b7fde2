package identity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Pagination
		want Pagination
	}{
		{name: "defaults", in: Pagination{}, want: Pagination{Page: 1, PageSize: DefaultPageSize}},
		{name: "negative", in: Pagination{Page: -3, PageSize: -1}, want: Pagination{Page: 1, PageSize: DefaultPageSize}},
		{name: "page size capped", in: Pagination{Page: 2, PageSize: 1000}, want: Pagination{Page: 2, PageSize: MaxPageSize}},
		{name: "page capped", in: Pagination{Page: math.MaxInt, PageSize: 50}, want: Pagination{Page: math.MaxInt / MaxPageSize, PageSize: 50}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.normalize()
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got.offset(), 0)
		})
	}
}
