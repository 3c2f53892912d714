// Package netcdf reads gridded precipitation from NetCDF files (CDF classic
// and NetCDF-4/HDF5) for grid assessments.
package netcdf

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Attribute names honored when decoding values (CF conventions).
const (
	attrFillValue    = "_FillValue"
	attrMissingValue = "missing_value"
	attrScaleFactor  = "scale_factor"
	attrAddOffset    = "add_offset"
)

// Opener implements domain.GridOpener for NetCDF files.
type Opener struct {
	logger *slog.Logger
}

// NewOpener creates a NetCDF opener.
func NewOpener(logger *slog.Logger) *Opener {
	return &Opener{logger: logger}
}

// Open opens path. Any failure to read the file is a DataFormatError.
func (o *Opener) Open(path string) (domain.GridFile, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, &domain.DataFormatError{Path: path, Err: err}
	}
	vars := group.ListVariables()
	o.logger.Debug("grid file opened", "path", path, "variables", len(vars))
	return &Dataset{path: path, group: group, variables: vars}, nil
}

// Dataset is an open NetCDF file.
type Dataset struct {
	path      string
	group     api.Group
	variables []string
}

// Variables lists the variables declared by the file.
func (d *Dataset) Variables() []string {
	return slices.Clone(d.variables)
}

// Values returns name's values flattened in row-major order. Fill and
// missing values become NaN and packed values are unpacked.
func (d *Dataset) Values(name string) ([]float64, error) {
	if !slices.Contains(d.variables, name) {
		return nil, &domain.DataFormatError{Path: d.path, Variable: name, Err: domain.ErrVariableNotFound}
	}
	v, err := d.group.GetVariable(name)
	if err != nil {
		return nil, &domain.DataFormatError{Path: d.path, Variable: name, Err: err}
	}
	values, err := flatten(v.Values)
	if err != nil {
		return nil, &domain.DataFormatError{Path: d.path, Variable: name, Err: err}
	}
	decode(values, v.Attributes)
	return values, nil
}

// Close releases the underlying file.
func (d *Dataset) Close() error {
	d.group.Close()
	return nil
}

var errNotNumeric = errors.New("variable is not numeric")

// flatten converts a (possibly nested) slice of numbers to []float64.
func flatten(values any) ([]float64, error) {
	if values == nil {
		return nil, errors.New("variable has no values")
	}
	var out []float64
	if err := appendValues(&out, reflect.ValueOf(values)); err != nil {
		return nil, err
	}
	return out, nil
}

func appendValues(out *[]float64, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if err := appendValues(out, v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Float32, reflect.Float64:
		*out = append(*out, v.Float())
		return nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		*out = append(*out, float64(v.Int()))
		return nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		*out = append(*out, float64(v.Uint()))
		return nil
	default:
		return fmt.Errorf("%w: %s", errNotNumeric, v.Type())
	}
}

// scalar reads a numeric attribute, which may be stored as a one-element slice.
func scalar(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	values, err := flatten(raw)
	if err != nil || len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// decode masks fill values to NaN, then applies scale_factor and add_offset.
func decode(values []float64, attrs api.AttributeMap) {
	var sentinels []float64
	for _, key := range []string{attrFillValue, attrMissingValue} {
		if s, ok := scalar(attrs, key); ok {
			sentinels = append(sentinels, s)
		}
	}
	scale, hasScale := scalar(attrs, attrScaleFactor)
	offset, hasOffset := scalar(attrs, attrAddOffset)
	if !hasScale {
		scale = 1
	}
	if !hasOffset {
		offset = 0
	}

	for i, v := range values {
		if slices.Contains(sentinels, v) {
			values[i] = math.NaN()
			continue
		}
		values[i] = v*scale + offset
	}
}
