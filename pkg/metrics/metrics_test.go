package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	Applies.WithLabelValues("manual").Inc()
	SuggestionScore.Observe(0.44)

	count, err := testutil.GatherAndCount(reg,
		"inspection_narrative_applies_total",
		"inspection_narrative_suggestion_score",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Panics(t, func() { Register(reg) }, "double registration must fail loudly")
}
