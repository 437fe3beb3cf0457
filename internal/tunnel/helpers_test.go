package tunnel_test

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type osSource struct{}

func (osSource) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

// header returns a 22-line header block with the given key/value pairs,
// padded with unrecognized keys.
func header(pairs ...string) []string {
	lines := []string{"T4NIDAQ data file"}
	for i := 0; i+1 < len(pairs); i += 2 {
		lines = append(lines, fmt.Sprintf("%d %s %s", len(lines), pairs[i], pairs[i+1]))
	}
	for len(lines) < 22 {
		lines = append(lines, fmt.Sprintf("%d padding%d 0", len(lines), len(lines)))
	}
	return lines
}

func writeManifest(t *testing.T, dir, dataset, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, dataset), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, dataset, dataset+".config"), []byte(content), 0644))
}

func gzipLines(t *testing.T, lines []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeDataFile(t *testing.T, dir, dataset string, compositeID int, hdr []string, samples []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, dataset), 0755))
	lines := append(append([]string{}, hdr...), samples...)
	name := filepath.Join(dir, dataset, fmt.Sprintf("%sA.%d.gz", dataset, compositeID))
	require.NoError(t, os.WriteFile(name, gzipLines(t, lines), 0644))
}

func sampleLines(values ...float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("  %g ", v)
	}
	return out
}

func rampLines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", i)
	}
	return out
}

// standardDataset writes dataset "x2s100" with channels PCB1 (card 0,
// channel 3) and PCB2 (card 1, channel 5).
func standardDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeManifest(t, dir, "x2s100", "# name card channel\nPCB1 0 3\n# comment\nPCB2 1 5\n")
	writeDataFile(t, dir, "x2s100", 30, header(
		"gain", "100",
		"transducerSensitivity", "0.0025",
		"dataUnits", "kPa",
		"transducerLocation", "1.245",
		"transducerSerialNumber", "SN1234",
		"transducerType", "pressure",
		"dataPoints", "5",
		"timeStart", "-0.001",
		"timeInterval", "0.0005",
		"operator", "zjd",
	), sampleLines(1, 2, 3, 4, 5))
	writeDataFile(t, dir, "x2s100", 150, header(
		"dataUnits", "V",
		"dataPoints", "5",
		"timeStart", "-0.001",
		"timeInterval", "0.0005",
	), sampleLines(10, 20, 30, 40, 50))
	return dir
}
