package retry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyConsumesCeiling(t *testing.T) {
	t.Parallel()

	p := NewPolicy(2)
	assert.True(t, p.Attempt())
	assert.True(t, p.Attempt())
	assert.False(t, p.Attempt())
	assert.True(t, p.Exhausted())
	assert.Equal(t, 2, p.Used())
}

func TestPolicyRefusedAttemptDoesNotCount(t *testing.T) {
	t.Parallel()

	p := NewPolicy(1)
	assert.True(t, p.Attempt())
	assert.False(t, p.Attempt())
	assert.False(t, p.Attempt())
	assert.Equal(t, 1, p.Used())
}

func TestPolicyReset(t *testing.T) {
	t.Parallel()

	p := NewPolicy(1)
	assert.True(t, p.Attempt())
	assert.True(t, p.Exhausted())

	p.Reset()
	assert.False(t, p.Exhausted())
	assert.True(t, p.Attempt())
}

func TestPolicyZeroCeiling(t *testing.T) {
	t.Parallel()

	p := NewPolicy(0)
	assert.False(t, p.Attempt())
	assert.True(t, p.Exhausted())
}
