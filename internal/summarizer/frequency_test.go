package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "The office tower has modern office floors. Parking is limited. " +
		"Office tenants enjoy tower views from every office. The weather was mild."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "The office tower has modern office floors. Office tenants enjoy tower views from every office.", got)
}

func TestSummarize_ShortInput(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  single fragment ", 3)
	require.NoError(t, err)
	assert.Equal(t, "single fragment", got)

	got, err = NewFrequencySummarizer().Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
