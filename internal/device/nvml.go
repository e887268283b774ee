package device

import (
	"sync"

	"codeberg.org/mutker/thermloop/internal/errors"
	"codeberg.org/mutker/thermloop/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlLibrary abstracts the NVML entry points for testing
type nvmlLibrary interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	DeviceGetHandleByIndex(index int) (nvml.Device, nvml.Return)
}

type nvmlPackage struct{}

func (nvmlPackage) Init() nvml.Return     { return nvml.Init() }
func (nvmlPackage) Shutdown() nvml.Return { return nvml.Shutdown() }

func (nvmlPackage) DeviceGetHandleByIndex(index int) (nvml.Device, nvml.Return) {
	return nvml.DeviceGetHandleByIndex(index)
}

// nvmlTemperatureReader is the part of nvml.Device the option needs
type nvmlTemperatureReader interface {
	GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return)
}

// NVMLTemperature reads the core temperature of an NVML device.
type NVMLTemperature struct {
	lib    nvmlLibrary
	index  int
	log    logger.Logger
	mu     sync.Mutex
	device nvmlTemperatureReader
}

func NewNVMLTemperature(index int, log logger.Logger) *NVMLTemperature {
	return &NVMLTemperature{lib: nvmlPackage{}, index: index, log: log}
}

// Initialize loads NVML and looks up the device.
func (t *NVMLTemperature) Initialize() error {
	errFactory := errors.New()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.device != nil {
		return nil
	}

	if ret := t.lib.Init(); !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
	}

	device, ret := t.lib.DeviceGetHandleByIndex(t.index)
	if !IsNVMLSuccess(ret) {
		t.lib.Shutdown()
		return errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}
	t.device = device

	t.log.Info().Int("index", t.index).Msg("NVML temperature source ready")

	return nil
}

func (t *NVMLTemperature) Query() (float64, error) {
	errFactory := errors.New()

	t.mu.Lock()
	device := t.device
	t.mu.Unlock()

	if device == nil {
		return 0, errFactory.New(ErrNotInitialized)
	}

	temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}

	return float64(temp), nil
}

// Shutdown releases NVML. Queries fail afterwards.
func (t *NVMLTemperature) Shutdown() error {
	errFactory := errors.New()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.device == nil {
		return nil
	}
	t.device = nil

	if ret := t.lib.Shutdown(); !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrShutdownFailed, newNVMLError(ret))
	}

	return nil
}
