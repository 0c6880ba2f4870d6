package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tafahom/tafahom-stream/internal/pipeline"
)

func TestNormalizeArabic_FoldsHamzaSeats(t *testing.T) {
	assert.Equal(t, "اسعاف", pipeline.NormalizeArabic("إسعاف"))
	assert.Equal(t, "اسعاف", pipeline.NormalizeArabic("أسعاف"))
	assert.Equal(t, "اسعاف", pipeline.NormalizeArabic("آسعاف"))
}

func TestNormalizeArabic_FoldsOtherLetters(t *testing.T) {
	assert.Equal(t, "في", pipeline.NormalizeArabic("فى"))
	assert.Equal(t, "مومن", pipeline.NormalizeArabic("مؤمن"))
	assert.Equal(t, "ميه", pipeline.NormalizeArabic("مئة"))
}

func TestNormalizeArabic_StripsTashkeel(t *testing.T) {
	assert.Equal(t, "حريق", pipeline.NormalizeArabic("حَرِيق"))
}

func TestNormalizeArabic_Trims(t *testing.T) {
	assert.Equal(t, "حريق", pipeline.NormalizeArabic("  حريق  "))
}

func TestNormalizeArabic_IsIdempotent(t *testing.T) {
	inputs := []string{"إسعاف حريق", "  فى  ", "حَرِيق", "مؤمن", "plain ascii"}
	for _, in := range inputs {
		once := pipeline.NormalizeArabic(in)
		twice := pipeline.NormalizeArabic(once)
		assert.Equal(t, once, twice, "normalization of %q is not idempotent", in)
	}
}
