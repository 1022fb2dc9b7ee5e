package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  What grew?  ", []string{"Revenue increased by 20%.", "Churn dropped by 5%."})

	assert.True(t, strings.HasPrefix(p, "### Retrieved Context:\nRevenue increased by 20%.\n\nChurn dropped by 5%."))
	assert.Contains(t, p, "### User Query:\nWhat grew?\n")
	assert.True(t, strings.HasSuffix(p, "### Your Answer:\n"))
}

func TestSystemPromptNamesFallback(t *testing.T) {
	assert.Contains(t, SystemPrompt, `"`+NotEnoughInformation+`"`)
}
