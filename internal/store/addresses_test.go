package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagsToStringsRoundTrip(t *testing.T) {
	tags := []Tag{TagContract, TagVerified}
	ss := tagsToStrings(tags)
	assert.Equal(t, []string{"Contract", "Verified"}, ss)
	assert.Equal(t, tags, stringsToTags(ss))
}

func TestTagsToStringsEmpty(t *testing.T) {
	assert.Empty(t, tagsToStrings(nil))
	assert.Empty(t, stringsToTags(nil))
}

func TestHasTag(t *testing.T) {
	a := Address{Tags: []Tag{TagContract, TagEOA}}
	assert.True(t, a.HasTag(TagContract))
	assert.True(t, a.HasTag(TagEOA))
	assert.False(t, a.HasTag(TagProxy))
}
