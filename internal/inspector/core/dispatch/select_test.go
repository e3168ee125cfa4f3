package dispatch

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

func ids(nodes []*model.NodeRecord) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func records(ids ...string) []*model.NodeRecord {
	out := make([]*model.NodeRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.NodeRecord{ID: id, Name: "node-" + id, ProvisionState: model.ProvisionStateAvailable})
	}
	return out
}

func TestSelect(t *testing.T) {
	t.Run("drops duplicates keeping order", func(t *testing.T) {
		got := Select(records("a", "b", "a", "c", "b"), false, 0, nil)
		assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	})

	t.Run("limit caps the pass", func(t *testing.T) {
		got := Select(records("a", "b", "c"), false, 2, nil)
		assert.Equal(t, []string{"a", "b"}, ids(got))
	})

	t.Run("non positive limit means no cap", func(t *testing.T) {
		assert.Len(t, Select(records("a", "b", "c"), false, 0, nil), 3)
		assert.Len(t, Select(records("a", "b", "c"), false, -1, nil), 3)
	})

	t.Run("shuffle is a permutation", func(t *testing.T) {
		in := records("a", "b", "c", "d", "e", "f", "g", "h")
		got := Select(in, true, 0, rand.New(rand.NewPCG(1, 2)))
		assert.ElementsMatch(t, ids(in), ids(got))
	})

	t.Run("shuffle is reproducible for a seed", func(t *testing.T) {
		in := records("a", "b", "c", "d", "e", "f", "g", "h")
		first := Select(in, true, 3, rand.New(rand.NewPCG(7, 7)))
		second := Select(in, true, 3, rand.New(rand.NewPCG(7, 7)))
		assert.Equal(t, ids(first), ids(second))
	})

	t.Run("input is not reordered", func(t *testing.T) {
		in := records("a", "b", "c", "d")
		_ = Select(in, true, 0, rand.New(rand.NewPCG(3, 4)))
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids(in))
	})
}
