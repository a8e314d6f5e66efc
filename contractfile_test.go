package pybridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const reportsContractYAML = `
module: analytics.reports
methods:
  row_count:
    returns: {type: integer}
  scan_rows:
    stream: true
    returns:
      type: object
      required: [id]
  ping: {}
`

func TestParseContract(t *testing.T) {
	moduleName, contract, err := ParseContract([]byte(reportsContractYAML))
	require.NoError(t, err)
	require.Equal(t, "analytics.reports", moduleName)

	require.Equal(t, []string{"ping", "row_count", "scan_rows"}, contract.Methods())
	require.False(t, contract.Streams("row_count"))
	require.True(t, contract.Streams("scan_rows"))
	require.False(t, contract.Streams("ping"))
}

func TestParseContractRequiresModule(t *testing.T) {
	_, _, err := ParseContract([]byte("methods:\n  ping: {}\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no module")
}

func TestParseContractRequiresMethods(t *testing.T) {
	_, _, err := ParseContract([]byte("module: app.worker\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no methods")
}

func TestParseContractRejectsBadYAML(t *testing.T) {
	_, _, err := ParseContract([]byte("module: [unclosed"))
	require.Error(t, err)
}

func TestLoadContractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(reportsContractYAML), 0o644))

	moduleName, contract, err := LoadContractFile(path)
	require.NoError(t, err)
	require.Equal(t, "analytics.reports", moduleName)
	require.True(t, contract.Declares("row_count"))
}

func TestLoadContractFileMissing(t *testing.T) {
	_, _, err := LoadContractFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read contract file")
}
