package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("decoded %s")
	assert.Equal(t, "decoded %s", got)

	// nil installs a no-op sink.
	got = ""
	SetLogger(nil)
	Logf("muted")
	assert.Empty(t, got)
}

func TestWarnfTagsLine(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Warnf("filter hit iteration cap after %d passes")
	assert.Equal(t, "warning: filter hit iteration cap after %d passes", got)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
}
