package cli_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samples = "../../testdata/samples"

// dynval runs the CLI with args, feeding stdin, and returns stdout, stderr
// and the exit error
func dynval(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "../../main.go"}, args...)...)
	cmd.Env = append(os.Environ(), "DYNVAL_DSN=")
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestCLI_FileInputOutput tests the CLI with file input and output
func TestCLI_FileInputOutput(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "output.json")

	_, stderr, err := dynval(t, nil, "parse", "-i", filepath.Join(samples, "order.json"), "-o", outputFile)
	require.NoError(t, err, "CLI command failed: %s", stderr)

	content, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	out := string(content)
	assert.True(t, strings.HasPrefix(out, `{"id":"6ba7b810-9dad-11d1-80b4-00c04fd430c8",`))
	assert.Contains(t, out, `"placed":"2024-03-04T05:06:07.0000000"`)
	assert.Contains(t, out, `"customer":{"name":"Ada Lovelace","email":"ada@example.com"}`)
	assert.Contains(t, out, `{"sku":"W-2","qty":1,"price":3.25,"note":null}`)
	assert.Contains(t, out, `"paid":true}`)
}

// TestCLI_StdinStdout tests the CLI with stdin input and stdout output
func TestCLI_StdinStdout(t *testing.T) {
	stdout, stderr, err := dynval(t, []byte(`{"name": "Jane Smith", "age": 25, "active": true}`), "parse", "--indent", "  ")
	require.NoError(t, err, "CLI command failed: %s", stderr)

	assert.Equal(t, "{\n  \"name\": \"Jane Smith\",\n  \"age\": 25,\n  \"active\": true\n}\n", stdout)
}

// TestCLI_MsgPack tests encoding to MessagePack and decoding it again
func TestCLI_MsgPack(t *testing.T) {
	envelope, err := os.ReadFile(filepath.Join(samples, "envelope.json"))
	require.NoError(t, err)

	packed, stderr, err := dynval(t, envelope, "parse", "--format", "msgpack")
	require.NoError(t, err, "CLI command failed: %s", stderr)
	assert.NotEqual(t, string(envelope), packed)

	stdout, stderr, err := dynval(t, []byte(packed), "parse", "--from", "msgpack")
	require.NoError(t, err, "CLI command failed: %s", stderr)
	assert.Equal(t, strings.TrimSpace(string(envelope)), strings.TrimSpace(stdout))
}

// TestCLI_Inspect tests the path summary with a custom root name
func TestCLI_Inspect(t *testing.T) {
	stdout, stderr, err := dynval(t, nil, "inspect", "-i", filepath.Join(samples, "order.json"), "-r", "order")
	require.NoError(t, err, "CLI command failed: %s", stderr)

	assert.Contains(t, stdout, `"Root":"Order"`)
	assert.Contains(t, stdout, `"Path":"$.lines[].sku"`)
	assert.Contains(t, stdout, `"Hint":"guid"`)
}

// TestCLI_InvalidJSON tests the CLI with invalid JSON input
func TestCLI_InvalidJSON(t *testing.T) {
	_, stderr, err := dynval(t, nil, "parse", "-i", filepath.Join(samples, "invalid.json"))

	assert.Error(t, err, "CLI should fail with invalid JSON")
	assert.Contains(t, stderr, "JSON syntax error")
}

// TestCLI_EmptyInput tests the CLI with empty input
func TestCLI_EmptyInput(t *testing.T) {
	_, stderr, err := dynval(t, []byte(""), "parse")

	assert.Error(t, err, "CLI should fail with empty input")
	assert.Contains(t, stderr, "empty")
}

// TestCLI_UnknownFormat tests config validation of the output format
func TestCLI_UnknownFormat(t *testing.T) {
	_, stderr, err := dynval(t, []byte(`{}`), "--format", "xml", "parse")

	assert.Error(t, err)
	assert.Contains(t, stderr, "Configuration error")
}

// TestCLI_QueryWithoutDSN tests that database commands need a connection string
func TestCLI_QueryWithoutDSN(t *testing.T) {
	_, stderr, err := dynval(t, nil, "query", "select 1")

	assert.Error(t, err)
	assert.Contains(t, stderr, "Database error")
}

// TestCLI_Version tests the version flag
func TestCLI_Version(t *testing.T) {
	stdout, _, err := dynval(t, nil, "--version")

	require.NoError(t, err)
	assert.Contains(t, stdout, "dynval version")
}
