package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendTopicAddsNewTopic(t *testing.T) {
	got := AppendTopic([]string{"a", "b"}, "c")
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestAppendTopicIgnoresDuplicate(t *testing.T) {
	got := AppendTopic([]string{"a", "b"}, "a")
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestAppendTopicKeepsMostRecentTen(t *testing.T) {
	var topics []string
	for i := 1; i <= 11; i++ {
		topics = AppendTopic(topics, fmt.Sprintf("topic-%d", i))
	}
	assert.Len(t, topics, 10)
	assert.Equal(t, "topic-2", topics[0], "oldest topic is evicted")
	assert.Equal(t, "topic-11", topics[9])
}

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "u1/brief_abc.json", ArtifactKey("u1", "brief_abc"))
}
