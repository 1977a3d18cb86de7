// Package loaders reads external geometry into scene objects.
package loaders

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/log"
	"github.com/df07/go-light-kernel/pkg/scene"
	"github.com/pkg/errors"
)

var logger = log.New("loaders")

// ErrInvalidPLY is returned for malformed or unsupported PLY files.
var ErrInvalidPLY = errors.New("loaders: invalid ply file")

// plyProperty is a scalar property, or a list when countType is set
type plyProperty struct {
	name      string
	valueType string
	countType string
}

func (p plyProperty) isList() bool { return p.countType != "" }

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

type plyHeader struct {
	format   string
	elements []plyElement
}

// plyTypes maps every PLY scalar type name to its canonical name and size in bytes
var plyTypes = map[string]struct {
	canonical string
	size      int
}{
	"char": {"char", 1}, "int8": {"char", 1},
	"uchar": {"uchar", 1}, "uint8": {"uchar", 1},
	"short": {"short", 2}, "int16": {"short", 2},
	"ushort": {"ushort", 2}, "uint16": {"ushort", 2},
	"int": {"int", 4}, "int32": {"int", 4},
	"uint": {"uint", 4}, "uint32": {"uint", 4},
	"float": {"float", 4}, "float32": {"float", 4},
	"double": {"double", 8}, "float64": {"double", 8},
}

// LoadPLY reads the mesh stored at path. The object is named after the file.
func LoadPLY(path string, materialSlot int) (*scene.MeshObject, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open ply file")
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mesh, err := ReadPLY(f, name, materialSlot)
	if err != nil {
		return nil, errors.Wrapf(err, "while loading %q", path)
	}

	logger.Infof("loaded %q: %d vertices, %d triangles in %v", path, len(mesh.Vertices), len(mesh.Triangles), time.Since(start))
	return mesh, nil
}

// ReadPLY decodes an ascii or binary PLY stream into a mesh whose triangles use materialSlot.
// Polygons are fan triangulated. Per-vertex normals and texture coordinates are kept when present.
func ReadPLY(r io.Reader, name string, materialSlot int) (*scene.MeshObject, error) {
	br := bufio.NewReader(r)
	header, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	var values valueReader
	switch header.format {
	case "ascii":
		scanner := bufio.NewScanner(br)
		scanner.Split(bufio.ScanWords)
		values = &asciiReader{scanner: scanner}
	case "binary_little_endian":
		values = &binaryReader{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryReader{r: br, order: binary.BigEndian}
	default:
		return nil, errors.Wrapf(ErrInvalidPLY, "unsupported format %q", header.format)
	}

	var b meshBuilder
	for _, element := range header.elements {
		switch element.name {
		case "vertex":
			err = b.readVertices(element, values)
		case "face":
			err = b.readFaces(element, values)
		default:
			err = skipElement(element, values)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "while reading %s elements", element.name)
		}
	}
	return b.build(name, materialSlot)
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, errors.Wrap(ErrInvalidPLY, "missing ply magic")
	}

	header := &plyHeader{}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(ErrInvalidPLY, "header is not terminated by end_header")
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "end_header":
			if header.format == "" {
				return nil, errors.Wrap(ErrInvalidPLY, "missing format line")
			}
			return header, nil

		case "format":
			if len(fields) < 3 {
				return nil, errors.Wrapf(ErrInvalidPLY, "malformed format line %q", strings.TrimSpace(line))
			}
			header.format = fields[1]

		case "element":
			if len(fields) != 3 {
				return nil, errors.Wrapf(ErrInvalidPLY, "malformed element line %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, errors.Wrapf(ErrInvalidPLY, "invalid element count %q", fields[2])
			}
			header.elements = append(header.elements, plyElement{name: fields[1], count: count})

		case "property":
			if len(header.elements) == 0 {
				return nil, errors.Wrap(ErrInvalidPLY, "property declared before any element")
			}
			prop, err := parsePLYProperty(fields[1:])
			if err != nil {
				return nil, err
			}
			last := &header.elements[len(header.elements)-1]
			last.props = append(last.props, prop)

		case "comment", "obj_info":
		default:
			return nil, errors.Wrapf(ErrInvalidPLY, "unknown header keyword %q", fields[0])
		}
	}
}

func parsePLYProperty(fields []string) (plyProperty, error) {
	canonical := func(name string) (string, error) {
		t, ok := plyTypes[name]
		if !ok {
			return "", errors.Wrapf(ErrInvalidPLY, "unknown property type %q", name)
		}
		return t.canonical, nil
	}

	if len(fields) == 4 && fields[0] == "list" {
		countType, err := canonical(fields[1])
		if err != nil {
			return plyProperty{}, err
		}
		valueType, err := canonical(fields[2])
		if err != nil {
			return plyProperty{}, err
		}
		return plyProperty{name: fields[3], valueType: valueType, countType: countType}, nil
	}
	if len(fields) == 2 {
		valueType, err := canonical(fields[0])
		if err != nil {
			return plyProperty{}, err
		}
		return plyProperty{name: fields[1], valueType: valueType}, nil
	}
	return plyProperty{}, errors.Wrapf(ErrInvalidPLY, "malformed property %q", strings.Join(fields, " "))
}

// valueReader decodes one scalar of the given canonical type from the body
type valueReader interface {
	read(valueType string) (float64, error)
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func (a *asciiReader) read(string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	v, err := strconv.ParseFloat(a.scanner.Text(), 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidPLY, "invalid number %q", a.scanner.Text())
	}
	return v, nil
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) read(valueType string) (float64, error) {
	data := b.buf[:plyTypes[valueType].size]
	if _, err := io.ReadFull(b.r, data); err != nil {
		return 0, err
	}
	switch valueType {
	case "char":
		return float64(int8(data[0])), nil
	case "uchar":
		return float64(data[0]), nil
	case "short":
		return float64(int16(b.order.Uint16(data))), nil
	case "ushort":
		return float64(b.order.Uint16(data)), nil
	case "int":
		return float64(int32(b.order.Uint32(data))), nil
	case "uint":
		return float64(b.order.Uint32(data)), nil
	case "float":
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	default:
		return math.Float64frombits(b.order.Uint64(data)), nil
	}
}

// readProperty returns the values of one property: a single value for scalars
func readProperty(prop plyProperty, values valueReader, dst []float64) ([]float64, error) {
	dst = dst[:0]
	if !prop.isList() {
		v, err := values.read(prop.valueType)
		if err != nil {
			return nil, err
		}
		return append(dst, v), nil
	}

	count, err := values.read(prop.countType)
	if err != nil {
		return nil, err
	}
	if count < 0 || count != math.Trunc(count) {
		return nil, errors.Wrapf(ErrInvalidPLY, "invalid list length %v for %s", count, prop.name)
	}
	for i := 0; i < int(count); i++ {
		v, err := values.read(prop.valueType)
		if err != nil {
			return nil, err
		}
		dst = append(dst, v)
	}
	return dst, nil
}

func skipElement(element plyElement, values valueReader) error {
	var scratch []float64
	for i := 0; i < element.count; i++ {
		for _, prop := range element.props {
			var err error
			if scratch, err = readProperty(prop, values, scratch); err != nil {
				return err
			}
		}
	}
	return nil
}

type meshBuilder struct {
	vertices []core.Vec3
	normals  []core.Vec3
	uvs      []core.Vec2
	faces    [][3]int
	skipped  int
}

func (b *meshBuilder) readVertices(element plyElement, values valueReader) error {
	index := map[string]int{}
	for i, prop := range element.props {
		if !prop.isList() {
			index[prop.name] = i
		}
	}
	lookup := func(names ...string) int {
		for _, name := range names {
			if i, ok := index[name]; ok {
				return i
			}
		}
		return -1
	}

	x, y, z := lookup("x"), lookup("y"), lookup("z")
	if x < 0 || y < 0 || z < 0 {
		return errors.Wrap(ErrInvalidPLY, "vertex element lacks x, y or z")
	}
	nx, ny, nz := lookup("nx"), lookup("ny"), lookup("nz")
	hasNormals := nx >= 0 && ny >= 0 && nz >= 0
	u, v := lookup("u", "s", "texture_u"), lookup("v", "t", "texture_v")
	hasUVs := u >= 0 && v >= 0

	row := make([]float64, len(element.props))
	var scratch []float64
	for i := 0; i < element.count; i++ {
		for p, prop := range element.props {
			var err error
			if scratch, err = readProperty(prop, values, scratch); err != nil {
				return err
			}
			if !prop.isList() {
				row[p] = scratch[0]
			}
		}
		b.vertices = append(b.vertices, core.NewVec3(row[x], row[y], row[z]))
		if hasNormals {
			b.normals = append(b.normals, core.NewVec3(row[nx], row[ny], row[nz]))
		}
		if hasUVs {
			b.uvs = append(b.uvs, core.NewVec2(row[u], row[v]))
		}
	}
	return nil
}

func (b *meshBuilder) readFaces(element plyElement, values valueReader) error {
	indices := -1
	for i, prop := range element.props {
		if prop.isList() && (prop.name == "vertex_indices" || prop.name == "vertex_index") {
			indices = i
		}
	}
	if indices < 0 {
		return errors.Wrap(ErrInvalidPLY, "face element lacks vertex_indices")
	}

	var scratch []float64
	for i := 0; i < element.count; i++ {
		for p, prop := range element.props {
			var err error
			if scratch, err = readProperty(prop, values, scratch); err != nil {
				return err
			}
			if p != indices {
				continue
			}
			if len(scratch) < 3 {
				b.skipped++
				continue
			}
			for _, index := range scratch {
				if index < 0 || int(index) >= len(b.vertices) {
					return errors.Wrapf(ErrInvalidPLY, "face %d references vertex %v of %d", i, index, len(b.vertices))
				}
			}
			for k := 1; k+1 < len(scratch); k++ {
				b.faces = append(b.faces, [3]int{int(scratch[0]), int(scratch[k]), int(scratch[k+1])})
			}
		}
	}
	return nil
}

func (b *meshBuilder) build(name string, materialSlot int) (*scene.MeshObject, error) {
	if len(b.vertices) == 0 || len(b.faces) == 0 {
		return nil, errors.Wrap(ErrInvalidPLY, "no triangles")
	}
	if b.skipped > 0 {
		logger.Warningf("%s: skipped %d faces with fewer than 3 vertices", name, b.skipped)
	}

	flat := make([]int, 0, 3*len(b.faces))
	for _, f := range b.faces {
		flat = append(flat, f[0], f[1], f[2])
	}
	mesh := scene.NewMeshObject(name, b.vertices, flat, materialSlot)
	mesh.Normals = b.normals
	mesh.UVs = b.uvs
	for i := range mesh.Triangles {
		tri := &mesh.Triangles[i]
		if len(b.normals) > 0 {
			tri.N0, tri.N1, tri.N2 = tri.V0, tri.V1, tri.V2
		}
		if len(b.uvs) > 0 {
			tri.T0, tri.T1, tri.T2 = tri.V0, tri.V1, tri.V2
		}
	}
	return mesh, nil
}
