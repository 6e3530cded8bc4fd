package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maplanning/lead-scout/internal/model"
)

func scored(ref string, score int, status string) model.ScoredLead {
	return model.ScoredLead{
		CanonicalLead: model.CanonicalLead{SourceID: "test", Reference: ref, Status: status},
		Score:         score,
	}
}

func TestQualify(t *testing.T) {
	leads := []model.ScoredLead{
		scored("a", 5, "Refused"),
		scored("b", 8, "Pending decision"),
		scored("c", 2, "REFUSED on appeal"),
		scored("d", -3, "Granted"),
		scored("e", 3, model.NA),
	}

	tests := []struct {
		name        string
		minScore    int
		refusedOnly bool
		want        []string
	}{
		{"no filter keeps negatives", -10, false, []string{"a", "b", "c", "d", "e"}},
		{"zero threshold", 0, false, []string{"a", "b", "c", "e"}},
		{"threshold inclusive", 5, false, []string{"a", "b"}},
		{"refused only", 0, true, []string{"a", "c"}},
		{"refused and threshold", 3, true, []string{"a"}},
		{"nothing qualifies", 100, false, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, refs(Qualify(leads, tt.minScore, tt.refusedOnly)))
		})
	}
}

func TestQualify_DoesNotModifyInput(t *testing.T) {
	leads := []model.ScoredLead{scored("a", 1, ""), scored("b", 9, "")}
	_ = Qualify(leads, 5, false)
	assert.Equal(t, []string{"a", "b"}, refs(leads))
}

func TestRank_StableOnTies(t *testing.T) {
	leads := []model.ScoredLead{
		scored("first-5", 5, ""),
		scored("top", 8, ""),
		scored("second-5", 5, ""),
		scored("low", 2, ""),
		scored("neg", -4, ""),
	}
	Rank(leads)
	assert.Equal(t, []string{"top", "first-5", "second-5", "low", "neg"}, refs(leads))
}

func TestRank_Empty(t *testing.T) {
	var leads []model.ScoredLead
	Rank(leads)
	assert.Empty(t, leads)
}

func TestResult_WarningsOf(t *testing.T) {
	r := &Result{Warnings: []model.Warning{
		{Kind: model.KindSourceUnavailable, Source: "a"},
		{Kind: model.KindMalformedRecord, Source: "b"},
		{Kind: model.KindSourceUnavailable, Source: "c"},
	}}
	assert.True(t, r.Degraded())
	assert.Len(t, r.WarningsOf(model.KindSourceUnavailable), 2)
	assert.Empty(t, r.WarningsOf(model.KindStoreUnavailable))
	assert.False(t, (&Result{}).Degraded())
}
