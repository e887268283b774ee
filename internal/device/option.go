package device

import (
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"codeberg.org/mutker/thermloop/internal/errors"
)

const milliDegreesPerDegree = 1000

// Option is a readable device option.
type Option interface {
	Query() (float64, error)
}

// ValueOption holds a value set by its owner, e.g. a firmware flag mirrored
// in software or a fixed test temperature.
type ValueOption struct {
	bits atomic.Uint64
}

func NewValueOption(v float64) *ValueOption {
	o := &ValueOption{}
	o.Set(v)
	return o
}

func (o *ValueOption) Set(v float64) {
	o.bits.Store(math.Float64bits(v))
}

func (o *ValueOption) Query() (float64, error) {
	return math.Float64frombits(o.bits.Load()), nil
}

// FileOption reads a sysfs style attribute holding an integer. Temperatures
// are exposed in millidegrees Celsius, toggles as 0 or 1.
type FileOption struct {
	path  string
	scale float64
}

// NewHwmonTemperature reads millidegrees from path.
func NewHwmonTemperature(path string) *FileOption {
	return &FileOption{path: path, scale: milliDegreesPerDegree}
}

// NewFileToggle reads a plain 0/1 flag from path.
func NewFileToggle(path string) *FileOption {
	return &FileOption{path: path, scale: 1}
}

func (o *FileOption) Query() (float64, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(o.path)
	if err != nil {
		return 0, errFactory.Wrap(ErrOptionRead, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, errFactory.WithData(ErrOptionParse, struct {
			Path  string
			Error string
		}{
			Path:  o.path,
			Error: err.Error(),
		})
	}

	return v / o.scale, nil
}
