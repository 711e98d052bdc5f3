package brief

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	b := &Brief{Topic: "renewable energy trends"}
	assert.NoError(t, b.Validate())

	blank := &Brief{Topic: "   "}
	assert.True(t, errors.Is(blank.Validate(), ErrEmptyTopic))

	empty := &Brief{}
	assert.Error(t, empty.Validate())
}

func TestNormalize(t *testing.T) {
	b := &Brief{
		Topic:        "  solar adoption  ",
		Objectives:   []string{" compare costs ", "", "  "},
		KeyQuestions: []string{"what changed since 2020?", "  "},
		Constraints:  []string{"english sources", "english sources", " recent data "},
	}

	b.Normalize()

	assert.Equal(t, "solar adoption", b.Topic)
	assert.Equal(t, []string{"compare costs"}, b.Objectives)
	assert.Equal(t, []string{"what changed since 2020?"}, b.KeyQuestions)
	assert.Equal(t, []string{"english sources", "recent data"}, b.Constraints)
}

func TestNormalizeKeepsNilSlices(t *testing.T) {
	b := &Brief{Topic: "x"}
	b.Normalize()
	assert.Nil(t, b.Objectives)
	assert.Nil(t, b.KeyQuestions)
	assert.Nil(t, b.Constraints)
}

func TestClone(t *testing.T) {
	orig := &Brief{
		Topic:        "grid storage",
		Objectives:   []string{"survey technologies"},
		KeyQuestions: []string{"which chemistries dominate?"},
		Constraints:  []string{"2024 onwards"},
	}

	copied := orig.Clone()
	require.NotSame(t, orig, copied)
	assert.Equal(t, orig, copied)

	copied.Objectives[0] = "changed"
	copied.Topic = "changed"
	assert.Equal(t, "survey technologies", orig.Objectives[0])
	assert.Equal(t, "grid storage", orig.Topic)
}

func TestCloneNil(t *testing.T) {
	var b *Brief
	assert.Nil(t, b.Clone())
}

func TestDegenerateBriefIsValid(t *testing.T) {
	b := &Brief{Topic: "quantum networking"}
	assert.NoError(t, b.Validate())
	assert.Empty(t, b.Objectives)
	assert.Empty(t, b.KeyQuestions)
}
