package dispatch

import (
	"math/rand/v2"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/hwfleet/hwfleet/internal/inspector/core/model"
)

// Select narrows the eligible nodes to the ones submitted in this pass.
// Duplicate ids are dropped, keeping the first occurrence. When shuffle is set the
// order is randomized with rnd before limit is applied; limit <= 0 means no cap.
func Select(nodes []*model.NodeRecord, shuffle bool, limit int, rnd *rand.Rand) []*model.NodeRecord {
	seen := sets.New[string]()
	out := make([]*model.NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		if seen.Has(n.ID) {
			continue
		}
		seen.Insert(n.ID)
		out = append(out, n)
	}

	if shuffle && rnd != nil {
		rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
