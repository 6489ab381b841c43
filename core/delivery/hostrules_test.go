package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDefaults(t *testing.T) {
	t.Parallel()

	rules := NewHostRules()

	tests := []struct {
		host string
		want HostFamily
	}{
		{"top4top.net", FamilyBrowserOnly},
		{"a.top4top.io", FamilyBrowserOnly},
		{"up-4ever.org", FamilyBrowserOnly},
		{"archive.org", FamilyStrictEncoding},
		{"ia801509.us.archive.org", FamilyStrictEncoding},
		{"islamway.net", FamilyStrictEncoding},
		{"example.com", FamilyDefault},
		// Suffix match requires a dot boundary.
		{"nottop4top.net", FamilyDefault},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rules.Classify(tt.host), "host %s", tt.host)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.json")
	content := `{"browser_only":["slowhost.example"],"strict_encoding":["fussy.example"]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rules := NewHostRules()
	require.NoError(t, rules.LoadFile(path))

	assert.Equal(t, FamilyBrowserOnly, rules.Classify("slowhost.example"))
	assert.Equal(t, FamilyStrictEncoding, rules.Classify("fussy.example"))
	// Built-in defaults stay in effect.
	assert.Equal(t, FamilyBrowserOnly, rules.Classify("top4top.net"))
	assert.Equal(t, FamilyStrictEncoding, rules.Classify("archive.org"))
}

func TestLoadFileRejectsBadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0644))

	rules := NewHostRules()
	assert.Error(t, rules.LoadFile(path))
	// Defaults untouched on a failed load.
	assert.Equal(t, FamilyBrowserOnly, rules.Classify("top4top.net"))
}
