package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"vesselscan/internal/models"
)

// parseTriple parses "a,b,c" into three floats.
func parseTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected three comma-separated values, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("parse %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseList parses a comma-separated list of floats. An empty string yields nil.
func parseList(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseShape parses "z,y,x" into a positive volume shape.
func parseShape(s string) (models.Shape, error) {
	t, err := parseTriple(s)
	if err != nil {
		return models.Shape{}, err
	}
	var shape models.Shape
	for i, v := range t {
		if v <= 0 || v != math.Trunc(v) {
			return models.Shape{}, fmt.Errorf("shape entry %v must be a positive integer", v)
		}
		shape[i] = int(v)
	}
	return shape, nil
}

// readFloat32Volume reads a little-endian float32 volume in (Z, Y, X) order.
func readFloat32Volume(r io.Reader, shape models.Shape) (*models.Volume, error) {
	vol := models.NewVolume(shape[0], shape[1], shape[2])
	buf := make([]float32, len(vol.Data))
	if err := binary.Read(bufio.NewReader(r), binary.LittleEndian, buf); err != nil {
		return nil, fmt.Errorf("read %s float32 volume: %w", shape, err)
	}
	for i, v := range buf {
		vol.Data[i] = float64(v)
	}
	return vol, nil
}

// readMask reads a uint8 mask where any non-zero byte selects the voxel.
func readMask(r io.Reader, shape models.Shape) (*models.Mask, error) {
	mask := models.NewMask(shape[0], shape[1], shape[2])
	buf := make([]byte, len(mask.Data))
	if _, err := io.ReadFull(bufio.NewReader(r), buf); err != nil {
		return nil, fmt.Errorf("read %s mask: %w", shape, err)
	}
	for i, b := range buf {
		mask.Data[i] = b != 0
	}
	return mask, nil
}

// writeFloat32Volume writes vol as little-endian float32.
func writeFloat32Volume(w io.Writer, vol *models.Volume) error {
	buf := make([]float32, len(vol.Data))
	for i, v := range vol.Data {
		buf[i] = float32(v)
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, buf); err != nil {
		return err
	}
	return bw.Flush()
}

func loadVolume(path string, shape models.Shape) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readFloat32Volume(f, shape)
}

func loadMask(path string, shape models.Shape) (*models.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readMask(f, shape)
}

func saveFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
