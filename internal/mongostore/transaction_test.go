package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimListKeepIDs(t *testing.T) {
	ids := []int64{50, 40, 30, 20, 10} // already descending, as Find would return

	cases := []struct {
		name             string
		keepFrom, keepTo int
		want             []int64
	}{
		{"keep first three", 0, 2, []int64{50, 40, 30}},
		{"keep middle slice", 1, 3, []int64{40, 30, 20}},
		{"keepTo beyond length clamps", 2, 100, []int64{30, 20, 10}},
		{"keepFrom beyond length keeps nothing", 10, 12, nil},
		{"keepFrom greater than keepTo keeps nothing", 3, 1, nil},
		{"keep everything", 0, 4, []int64{50, 40, 30, 20, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := trimListKeepIDs(ids, tc.keepFrom, tc.keepTo)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTrimListRemoveIDs(t *testing.T) {
	ids := []int64{50, 40, 30, 20, 10}

	removed := trimListRemoveIDs(ids, 0, 2)
	assert.ElementsMatch(t, []int64{20, 10}, removed)

	removed = trimListRemoveIDs(ids, 10, 12)
	assert.ElementsMatch(t, ids, removed)

	removed = trimListRemoveIDs(ids, 0, 4)
	assert.Empty(t, removed)
}
