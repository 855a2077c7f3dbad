package common

import (
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// BytesToSlice copies raw bytes into dst element by element, the inverse of SliceToBytes.
// Copies min(len(dst), len(data)/sizeof(T)) elements; a trailing partial element is ignored.
//
// Parameters:
//   - dst: destination slice of any POD type
//   - data: source bytes, typically a mapped GPU readback range
//
// Returns:
//   - int: the number of elements copied
func BytesToSlice[T any](dst []T, data []byte) int {
	if len(dst) == 0 {
		return 0
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	n := min(len(dst), len(data)/size)
	if n == 0 {
		return 0
	}
	return copy(SliceToBytes(dst[:n]), data[:n*size]) / size
}
