package tunnel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

func TestDataFilePath(t *testing.T) {
	d := tunnel.Descriptor{Name: "PCB1", CardID: 2, ChannelID: 7}
	assert.Equal(t, "x2s100A.270.gz", tunnel.DataFileName("x2s100", d))
	assert.Equal(t, filepath.Join("data", "x2s100", "x2s100A.270.gz"), tunnel.DataFilePath("x2s100", "data", d))
}

func TestLoadChannel(t *testing.T) {
	dir := standardDataset(t)
	ix := tunnel.NewIndex(osSource{}, nil)

	ch, err := ix.LoadNamedChannel("x2s100", dir, "PCB1")
	require.NoError(t, err)

	assert.Equal(t, "x2s100", ch.Dataset)
	assert.Equal(t, "x2s100: PCB1", ch.String())
	assert.Equal(t, tunnel.Descriptor{Name: "PCB1", CardID: 0, ChannelID: 3}, ch.Descriptor())
	assert.Equal(t, 100.0, ch.ExternalGain)
	assert.Equal(t, 0.0025, ch.Sensitivity)
	assert.Equal(t, "kPa", ch.Units)
	assert.Equal(t, "1.245", ch.Position)
	assert.Equal(t, "SN1234", ch.SerialNo)
	assert.Equal(t, "pressure", ch.TransducerType)
	assert.Equal(t, -10.0, ch.MinVolts)
	assert.Equal(t, 10.0, ch.MaxVolts)
	assert.Equal(t, 5, ch.NumberDataPoints)
	assert.Equal(t, 5, ch.DeclaredDataPoints)
	assert.Equal(t, -0.001, ch.StartTime)
	assert.Equal(t, 0.0005, ch.SampleInterval)

	assert.Equal(t, []float64{1, 2, 3, 4, 5}, ch.Samples())
	require.Equal(t, 5, ch.Len())
	expectedTimes := []float64{-0.001, -0.0005, 0, 0.0005, 0.001}
	for i, want := range expectedTimes {
		assert.InDelta(t, want, ch.Time(i), 1e-12)
	}

	value, ok := ch.HeaderValue("operator")
	assert.True(t, ok)
	assert.Equal(t, "zjd", value)
	_, ok = ch.HeaderValue("nope")
	assert.False(t, ok)
}

func TestLoadChannelDefaults(t *testing.T) {
	dir := standardDataset(t)
	ix := tunnel.NewIndex(osSource{}, nil)

	ch, err := ix.LoadNamedChannel("x2s100", dir, "PCB2")
	require.NoError(t, err)
	assert.Equal(t, 1.0, ch.ExternalGain)
	assert.Equal(t, 1.0, ch.Sensitivity)
	assert.Equal(t, "0.0", ch.Position)
	assert.Equal(t, "", ch.SerialNo)
}

func TestLoadChannelMultiWordValue(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "cal1", "TC1 0 0\n")
	writeDataFile(t, dir, "cal1", 0, header(
		"transducerType", "Kulite   XCQ-080",
		"timeInterval", "1e-5",
	), sampleLines(0.5))

	ch, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("cal1", dir, "TC1")
	require.NoError(t, err)
	assert.Equal(t, "Kulite XCQ-080", ch.TransducerType)
	assert.Equal(t, 0.0, ch.StartTime)
	assert.Equal(t, -1, ch.DeclaredDataPoints)
}

func TestLoadChannelDeclaredCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shot2", "P1 0 1\n")
	writeDataFile(t, dir, "shot2", 10, header(
		"dataPoints", "100",
		"timeStart", "0",
		"timeInterval", "0.001",
	), rampLines(98))

	core, logs := observer.New(zapcore.WarnLevel)
	ix := tunnel.NewIndex(osSource{}, zap.New(core))

	ch, err := ix.LoadNamedChannel("shot2", dir, "P1")
	require.NoError(t, err)
	assert.Equal(t, 98, ch.NumberDataPoints)
	assert.Equal(t, 100, ch.DeclaredDataPoints)
	assert.Len(t, ch.Times(), 98)

	warnings := logs.FilterMessage("Declared data points differ from parsed samples").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.EqualValues(t, 100, fields["declared"])
	assert.EqualValues(t, 98, fields["parsed"])
}

func TestLoadChannelTrailingBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shot3", "P1 0 0\n")
	samples := append(sampleLines(1, 2, 3), "", "   ", "")
	writeDataFile(t, dir, "shot3", 0, header("timeInterval", "0.5"), samples)

	ch, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("shot3", dir, "P1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, ch.Samples())
	assert.Equal(t, []float64{0, 0.5, 1}, ch.Times())
}

func TestLoadChannelEmptyBody(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shot4", "P1 0 0\n")
	writeDataFile(t, dir, "shot4", 0, header("timeInterval", "0.5"), nil)

	ch, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("shot4", dir, "P1")
	require.NoError(t, err)
	assert.Equal(t, 0, ch.Len())
	assert.Empty(t, ch.Times())
}

func TestLoadChannelHeaderValueError(t *testing.T) {
	expected := []struct {
		Header []string
		Key    string
	}{
		{Header: header("gain", "notanumber", "timeInterval", "0.1"), Key: "gain"},
		{Header: header("timeStart", "x", "timeInterval", "0.1"), Key: "timeStart"},
		{Header: header("dataPoints", "-3", "timeInterval", "0.1"), Key: "dataPoints"},
		{Header: header("timeInterval", "0"), Key: "timeInterval"},
		{Header: header("gain", "2"), Key: "timeInterval"},
	}

	for _, exp := range expected {
		dir := t.TempDir()
		writeManifest(t, dir, "bad", "P1 0 0\n")
		writeDataFile(t, dir, "bad", 0, exp.Header, sampleLines(1, 2))

		_, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("bad", dir, "P1")
		require.Error(t, err, exp.Key)
		assert.True(t, errors.Is(err, tunnel.ErrHeaderValue), exp.Key)

		var headerErr *tunnel.HeaderValueError
		require.True(t, errors.As(err, &headerErr))
		assert.Equal(t, exp.Key, headerErr.Key)
	}
}

func TestLoadChannelSampleParseError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "bad", "P1 0 0\n")
	writeDataFile(t, dir, "bad", 0, header("timeInterval", "0.1"), []string{"1.0", "2.0", "abc", "4.0"})

	_, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("bad", dir, "P1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tunnel.ErrSampleParse))

	var sampleErr *tunnel.SampleParseError
	require.True(t, errors.As(err, &sampleErr))
	assert.Equal(t, 2, sampleErr.Index)
	assert.Equal(t, "abc", sampleErr.Text)
}

func TestLoadChannelDataFileNotFound(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shot5", "P1 1 2\n")

	_, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("shot5", dir, "P1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tunnel.ErrDataFileNotFound))
	assert.True(t, tunnel.IsNotFound(err))

	var pathErr *tunnel.PathError
	require.True(t, errors.As(err, &pathErr))
	assert.Equal(t, filepath.Join(dir, "shot5", "shot5A.120.gz"), pathErr.Path)
}

func TestLoadChannelCorruptGzip(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "shot6", "P1 0 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot6", "shot6A.0.gz"), []byte("not gzip"), 0644))

	_, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("shot6", dir, "P1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, tunnel.ErrDataFileNotFound))
}

func TestChannelSeriesAreCopies(t *testing.T) {
	dir := standardDataset(t)
	ch, err := tunnel.NewIndex(osSource{}, nil).LoadNamedChannel("x2s100", dir, "PCB2")
	require.NoError(t, err)

	samples := ch.Samples()
	samples[0] = -99
	times := ch.Times()
	times[0] = -99

	assert.Equal(t, 10.0, ch.Sample(0))
	assert.Equal(t, -0.001, ch.Time(0))
}
