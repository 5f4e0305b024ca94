package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/pubsense/core/metrics"
	"github.com/kilianp07/pubsense/core/model"
)

func TestRenderScalarScenario(t *testing.T) {
	snap := model.NewSnapshotBuilder(time.Now()).
		Set(model.ChannelTemperature, model.Scalar(21.5)).
		Set(model.ChannelHumidity, model.Scalar(40)).
		Build()

	doc, err := Render(snap)
	require.NoError(t, err)
	expected := `# HELP sense_hat_temperature Temperature from the humidity sensor in degrees Celsius.
# TYPE sense_hat_temperature gauge
sense_hat_temperature 21.5
# HELP sense_hat_humidity Relative humidity in percent.
# TYPE sense_hat_humidity gauge
sense_hat_humidity 40
`
	assert.Equal(t, expected, string(doc))
}

func TestRenderCompositeAxes(t *testing.T) {
	snap := model.NewSnapshotBuilder(time.Now()).
		Set(model.ChannelCompass, model.Vector{X: 14, Y: -3.5, Z: 0}).
		Set(model.ChannelOrientation, model.Orientation{Pitch: 1, Roll: 2, Yaw: 359.5}).
		Build()

	doc, err := Render(snap)
	require.NoError(t, err)
	expected := `# HELP sense_hat_compass Magnetic field in microtesla.
# TYPE sense_hat_compass gauge
sense_hat_compass{axis="x"} 14
sense_hat_compass{axis="y"} -3.5
sense_hat_compass{axis="z"} 0
# HELP sense_hat_orientation Board orientation in degrees.
# TYPE sense_hat_orientation gauge
sense_hat_orientation{axis="pitch"} 1
sense_hat_orientation{axis="roll"} 2
sense_hat_orientation{axis="yaw"} 359.5
`
	assert.Equal(t, expected, string(doc))
}

func TestRenderKeepsInsertionOrder(t *testing.T) {
	names := []string{
		model.ChannelPressure,
		model.ChannelAccelerometer,
		model.ChannelHumidity,
		model.ChannelGyroscope,
	}
	b := model.NewSnapshotBuilder(time.Now())
	for i, n := range names {
		if n == model.ChannelAccelerometer || n == model.ChannelGyroscope {
			b.Set(n, model.Vector{X: float64(i)})
			continue
		}
		b.Set(n, model.Scalar(i))
	}
	doc, err := Render(b.Build())
	require.NoError(t, err)

	var order []string
	for _, line := range strings.Split(strings.TrimSuffix(string(doc), "\n"), "\n") {
		if strings.HasPrefix(line, "# TYPE ") {
			order = append(order, strings.Fields(line)[2])
		}
	}
	require.Len(t, order, len(names))
	for i, n := range names {
		assert.Equal(t, MetricName(n), order[i])
	}
}

func TestRenderUnknownChannel(t *testing.T) {
	snap := model.NewSnapshotBuilder(time.Now()).Set("dew-point", model.Scalar(3)).Build()
	doc, err := Render(snap)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "# HELP sense_hat_dew_point Sense HAT dew-point reading.\n")
	assert.Contains(t, string(doc), "sense_hat_dew_point 3\n")
}

func TestRenderMetricNameCollision(t *testing.T) {
	snap := model.NewSnapshotBuilder(time.Now()).
		Set("dew-point", model.Scalar(3)).
		Set("dew_point", model.Scalar(4)).
		Build()
	_, err := Render(snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetricNameCollision))
	assert.Contains(t, err.Error(), `"dew-point" and "dew_point"`)
}

func TestWriteFileCollisionKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), coremetrics.TextfileName)
	good := model.NewSnapshotBuilder(time.Now()).Set(model.ChannelHumidity, model.Scalar(40)).Build()
	require.NoError(t, WriteFile(path, good))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := model.NewSnapshotBuilder(time.Now()).
		Set("dew-point", model.Scalar(3)).
		Set("dew_point", model.Scalar(4)).
		Build()
	err = WriteFile(path, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, coremetrics.ErrFileWrite))
	assert.True(t, errors.Is(err, ErrMetricNameCollision))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRenderEmptySnapshot(t *testing.T) {
	doc, err := Render(model.NewSnapshotBuilder(time.Now()).Build())
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestRenderNilValue(t *testing.T) {
	snap := model.NewSnapshotBuilder(time.Now()).Set("broken", nil).Build()
	_, err := Render(snap)
	assert.Error(t, err)
}

func TestTextfileSinkWriteIdempotent(t *testing.T) {
	dir := t.TempDir()
	sink := NewTextfileSink(coremetrics.Config{TextfileDir: dir}, nil)
	assert.Equal(t, filepath.Join(dir, coremetrics.TextfileName), sink.Path())

	snap := model.NewSnapshotBuilder(time.Now()).
		Set(model.ChannelTemperature, model.Scalar(21.5)).
		Set(model.ChannelAccelerometer, model.Vector{X: 0.01, Y: -0.02, Z: 1}).
		Build()

	require.NoError(t, sink.Write(snap))
	first, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	require.NoError(t, sink.Write(snap))
	second, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, strings.Count(string(first), "# HELP "))
}

func TestWriteFileReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), coremetrics.TextfileName)
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new document\n"), 0o644))

	snap := model.NewSnapshotBuilder(time.Now()).Set(model.ChannelHumidity, model.Scalar(40)).Build()
	require.NoError(t, WriteFile(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.True(t, strings.HasSuffix(string(data), "sense_hat_humidity 40\n"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", coremetrics.TextfileName)
	snap := model.NewSnapshotBuilder(time.Now()).Set(model.ChannelHumidity, model.Scalar(40)).Build()
	err := WriteFile(path, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, coremetrics.ErrFileWrite))
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "sense_hat_temperature_from_pressure", MetricName(model.ChannelTemperatureFromPressure))
	assert.Equal(t, "sense_hat_a_b_c", MetricName("a.b c"))
}
