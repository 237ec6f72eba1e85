package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf)
	assert.Equal(t, "identity version dev\n", buf.String())

	Version, GitCommit, BuildOS, BuildArch = "1.2.0", "0123456789abcdef", "linux", "amd64"
	t.Cleanup(func() { Version, GitCommit, BuildOS, BuildArch = "", "", "", "" })

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "identity version 1.2.0\n")
	assert.Contains(t, buf.String(), "Git commit: 0123456\n")
	assert.Contains(t, buf.String(), "Built for: linux/amd64\n")
	assert.Equal(t, "identity/1.2.0", UserAgent())
}
