package reader

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// varSource supplies granule variables by slash-separated path. The batch
// builders read through this interface so an opened file is not the only
// possible source.
type varSource interface {
	floats(path string) ([]float64, error)
	firstString(path string) (string, error)
}

// hdf5File wraps a granule opened with the pure-Go NetCDF4/HDF5 reader and
// resolves slash-separated variable paths through nested groups.
type hdf5File struct {
	root api.Group
}

func openHDF5(path string) (*hdf5File, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open HDF5 file %q: %w", path, err)
	}
	return &hdf5File{root: g}, nil
}

func (f *hdf5File) Close() {
	f.root.Close()
}

// variable resolves a slash-separated path like
// "Data_40HZ/Elevation_Surfaces/d_elev" and returns the variable's values.
func (f *hdf5File) variable(path string) (interface{}, error) {
	parts := strings.Split(path, "/")
	group := f.root
	opened := make([]api.Group, 0, len(parts)-1)
	defer func() {
		for _, g := range opened {
			g.Close()
		}
	}()

	for _, name := range parts[:len(parts)-1] {
		sub, err := group.GetGroup(name)
		if err != nil {
			return nil, fmt.Errorf("group %q in %q: %w", name, path, err)
		}
		opened = append(opened, sub)
		group = sub
	}

	v, err := group.GetVariable(parts[len(parts)-1])
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", path, err)
	}
	return v.Values, nil
}

// floats reads a numeric variable as float64 regardless of the stored type.
func (f *hdf5File) floats(path string) ([]float64, error) {
	values, err := f.variable(path)
	if err != nil {
		return nil, err
	}
	out, err := toFloat64s(values)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", path, err)
	}
	return out, nil
}

// firstString reads the first element of a string variable.
func (f *hdf5File) firstString(path string) (string, error) {
	values, err := f.variable(path)
	if err != nil {
		return "", err
	}
	switch v := values.(type) {
	case string:
		return v, nil
	case []string:
		if len(v) == 0 {
			return "", fmt.Errorf("variable %q is empty", path)
		}
		return v[0], nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("variable %q has non-string type %T", path, values)
	}
}

func toFloat64s(values interface{}) ([]float64, error) {
	switch v := values.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convertSlice(v, func(x float32) float64 { return float64(x) }), nil
	case []int64:
		return convertSlice(v, func(x int64) float64 { return float64(x) }), nil
	case []uint64:
		return convertSlice(v, func(x uint64) float64 { return float64(x) }), nil
	case []int32:
		return convertSlice(v, func(x int32) float64 { return float64(x) }), nil
	case []uint32:
		return convertSlice(v, func(x uint32) float64 { return float64(x) }), nil
	case []int16:
		return convertSlice(v, func(x int16) float64 { return float64(x) }), nil
	case []uint16:
		return convertSlice(v, func(x uint16) float64 { return float64(x) }), nil
	case []int8:
		return convertSlice(v, func(x int8) float64 { return float64(x) }), nil
	case []uint8:
		return convertSlice(v, func(x uint8) float64 { return float64(x) }), nil
	case float64:
		return []float64{v}, nil
	case float32:
		return []float64{float64(v)}, nil
	case int32:
		return []float64{float64(v)}, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to float64 column", values)
	}
}

func convertSlice[T any](in []T, conv func(T) float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = conv(x)
	}
	return out
}
