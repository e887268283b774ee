package device_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/thermloop/internal/device"
	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"codeberg.org/mutker/thermloop/internal/thermal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = thermal.Config{PollInterval: 2 * time.Millisecond, Threshold: 2}

func newDevice(t *testing.T, toggle device.Option) (*device.Device, *device.ValueOption, chan float64) {
	t.Helper()

	temp := device.NewValueOption(40)
	d, err := device.New("depth", testConfig, temp, toggle, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	notified := make(chan float64, 64)
	d.Subscribe(func(v float64) { notified <- v })

	return d, temp, notified
}

func receive(t *testing.T, ch <-chan float64) float64 {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("no notification received")
		return 0
	}
}

func TestNewRequiresTemperature(t *testing.T) {
	_, err := device.New("depth", testConfig, nil, nil, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

type closingOption struct {
	*device.ValueOption
	shutdowns int
}

func (o *closingOption) Shutdown() error {
	o.shutdowns++
	return nil
}

func TestNewShutsDownOptionsOnFailure(t *testing.T) {
	temp := &closingOption{ValueOption: device.NewValueOption(40)}
	toggle := &closingOption{ValueOption: device.NewValueOption(1)}

	_, err := device.New("depth", thermal.Config{}, temp, toggle, logger.Nop())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInterval))
	assert.Equal(t, 1, temp.shutdowns)
	assert.Equal(t, 1, toggle.shutdowns)

	toggle = &closingOption{ValueOption: device.NewValueOption(1)}
	_, err = device.New("depth", testConfig, nil, toggle, logger.Nop())
	require.Error(t, err)
	assert.Equal(t, 1, toggle.shutdowns)
}

func TestOpenStartsCompensation(t *testing.T) {
	d, _, notified := newDevice(t, nil)
	assert.True(t, d.Compensation())
	assert.False(t, d.Monitor().IsActive())

	require.NoError(t, d.Open())
	assert.True(t, d.Stream().IsOpen())
	assert.True(t, d.Monitor().IsActive())
	assert.InDelta(t, 40.0, receive(t, notified), 0)
}

func TestCloseStreamStopsWithoutSignal(t *testing.T) {
	d, _, notified := newDevice(t, nil)
	require.NoError(t, d.Open())
	require.InDelta(t, 40.0, receive(t, notified), 0)

	d.CloseStream()
	assert.False(t, d.Monitor().IsActive())
	assert.False(t, d.Stream().IsOpen())
	assert.InDelta(t, 0.0, d.Monitor().Baseline(), 0)
	assert.Empty(t, notified)
}

func TestSetCompensation(t *testing.T) {
	d, temp, notified := newDevice(t, nil)

	d.SetCompensation(false)
	require.NoError(t, d.Open())
	assert.False(t, d.Monitor().IsActive())

	d.SetCompensation(true)
	assert.True(t, d.Monitor().IsActive())
	assert.InDelta(t, 40.0, receive(t, notified), 0)

	temp.Set(45)
	assert.InDelta(t, 45.0, receive(t, notified), 0)

	d.SetCompensation(false)
	assert.False(t, d.Monitor().IsActive())
	assert.True(t, thermal.IsCompensationOff(receive(t, notified)))
}

func TestSetCompensationWithClosedStream(t *testing.T) {
	d, _, notified := newDevice(t, nil)
	d.SetCompensation(false)
	d.SetCompensation(true)

	assert.False(t, d.Monitor().IsActive())
	assert.Empty(t, notified)
}

func TestFirmwareToggleGatesSampling(t *testing.T) {
	toggle := device.NewValueOption(0)
	d, _, notified := newDevice(t, toggle)
	require.NoError(t, d.Open())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, notified)

	toggle.Set(1)
	assert.InDelta(t, 40.0, receive(t, notified), 0)
}

func TestCloseReleasesEverything(t *testing.T) {
	d, _, _ := newDevice(t, nil)
	require.NoError(t, d.Open())
	require.True(t, d.Monitor().IsActive())

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.False(t, d.Monitor().IsActive())
	assert.False(t, d.Stream().IsOpen())

	err := d.Open()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, device.ErrDeviceClosed))

	// The stream is shut for good, so compensation cannot start again.
	d.Monitor().Update(true)
	assert.False(t, d.Monitor().IsActive())
}

func TestFileOptions(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, "temp")
	togglePath := filepath.Join(dir, "tl_enable")
	require.NoError(t, os.WriteFile(tempPath, []byte("45123\n"), 0o600))
	require.NoError(t, os.WriteFile(togglePath, []byte("1\n"), 0o600))

	v, err := device.NewHwmonTemperature(tempPath).Query()
	require.NoError(t, err)
	assert.InDelta(t, 45.123, v, 1e-9)

	v, err = device.NewFileToggle(togglePath).Query()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0)

	require.NoError(t, os.WriteFile(tempPath, []byte("hot"), 0o600))
	_, err = device.NewHwmonTemperature(tempPath).Query()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, device.ErrOptionParse))

	_, err = device.NewHwmonTemperature(filepath.Join(dir, "missing")).Query()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, device.ErrOptionRead))
}

func TestNewTemperatureOption(t *testing.T) {
	o, err := device.NewTemperatureOption(device.SourceConfig{Source: device.SourceStatic, StaticTemperature: 37}, logger.Nop())
	require.NoError(t, err)
	v, err := o.Query()
	require.NoError(t, err)
	assert.InDelta(t, 37.0, v, 0)

	_, err = device.NewTemperatureOption(device.SourceConfig{Source: device.SourceHwmon}, logger.Nop())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	_, err = device.NewTemperatureOption(device.SourceConfig{Source: "thermocouple"}, logger.Nop())
	assert.True(t, errors.HasCode(err, errors.ErrInvalidSource))

	assert.Nil(t, device.NewToggleOption(device.SourceConfig{}))
	assert.NotNil(t, device.NewToggleOption(device.SourceConfig{TogglePath: "/sys/tl"}))
}
