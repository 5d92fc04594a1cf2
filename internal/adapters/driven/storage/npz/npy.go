package npz

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// npyMagic opens every .npy payload.
const npyMagic = "\x93NUMPY"

// headerAlign is the alignment numpy pads the preamble and header to.
const headerAlign = 64

var (
	errBadMagic  = errors.New("not an npy array")
	errBadHeader = errors.New("malformed npy header")

	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyHeader is the parsed array description.
type npyHeader struct {
	descr   string
	fortran bool
	shape   []int
}

// elements returns the number of elements described by the shape. It fails
// when that many elements of size bytes would not fit in avail bytes, and
// checks each dimension before multiplying so a forged shape cannot overflow.
func (h npyHeader) elements(size, avail int) (int, error) {
	for _, d := range h.shape {
		if d == 0 {
			return 0, nil
		}
	}
	n := 1
	for _, d := range h.shape {
		if n > avail/size/d {
			return 0, fmt.Errorf("shape %v needs more than the %d bytes present", h.shape, avail)
		}
		n *= d
	}
	return n, nil
}

// encodeHeader renders a version 1.0 preamble and header for descr/shape.
func encodeHeader(descr string, shape []int) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	shapeText := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeText += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, shapeText)

	// magic(6) + version(2) + length(2) + dict + padding + '\n'
	pre := len(npyMagic) + 4
	total := pre + len(dict) + 1
	if rem := total % headerAlign; rem != 0 {
		total += headerAlign - rem
	}
	headerLen := total - pre

	var buf bytes.Buffer
	buf.WriteString(npyMagic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(headerLen))
	buf.WriteString(dict)
	buf.WriteString(strings.Repeat(" ", headerLen-len(dict)-1))
	buf.WriteByte('\n')
	return buf.Bytes()
}

// decodeHeader parses the preamble and header and returns the remaining data.
func decodeHeader(raw []byte) (npyHeader, []byte, error) {
	if len(raw) < len(npyMagic)+4 || string(raw[:len(npyMagic)]) != npyMagic {
		return npyHeader{}, nil, errBadMagic
	}
	major := raw[len(npyMagic)]
	rest := raw[len(npyMagic)+2:]

	var headerLen int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(rest))
		rest = rest[2:]
	case 2, 3:
		if len(rest) < 4 {
			return npyHeader{}, nil, errBadHeader
		}
		headerLen = int(binary.LittleEndian.Uint32(rest))
		rest = rest[4:]
	default:
		return npyHeader{}, nil, fmt.Errorf("unsupported npy version %d", major)
	}
	if headerLen > len(rest) {
		return npyHeader{}, nil, errBadHeader
	}
	dict := string(rest[:headerLen])
	data := rest[headerLen:]

	var h npyHeader
	m := descrRe.FindStringSubmatch(dict)
	if m == nil {
		return npyHeader{}, nil, fmt.Errorf("%w: missing descr", errBadHeader)
	}
	h.descr = m[1]

	if m = fortranRe.FindStringSubmatch(dict); m != nil {
		h.fortran = m[1] == "True"
	}

	m = shapeRe.FindStringSubmatch(dict)
	if m == nil {
		return npyHeader{}, nil, fmt.Errorf("%w: missing shape", errBadHeader)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || d < 0 {
			return npyHeader{}, nil, fmt.Errorf("%w: bad shape %q", errBadHeader, m[1])
		}
		h.shape = append(h.shape, d)
	}

	return h, data, nil
}

// encodeMatrix writes rows as a '<f4' C-order array of shape (N, D).
func encodeMatrix(rows [][]float32, dims int) []byte {
	header := encodeHeader("<f4", []int{len(rows), dims})
	buf := make([]byte, len(header), len(header)+len(rows)*dims*4)
	copy(buf, header)
	var word [4]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
			buf = append(buf, word[:]...)
		}
	}
	return buf
}

// decodeMatrix reads a float32 or float64 array of shape (N, D), or an empty
// 1-D array, into rows.
func decodeMatrix(raw []byte) ([][]float32, error) {
	h, data, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	var rows, cols int
	switch len(h.shape) {
	case 2:
		rows, cols = h.shape[0], h.shape[1]
	case 1:
		if h.shape[0] != 0 {
			return nil, fmt.Errorf("expected a 2-D embeddings array, got shape %v", h.shape)
		}
	default:
		return nil, fmt.Errorf("expected a 2-D embeddings array, got shape %v", h.shape)
	}

	if cols == 0 && rows > 0 {
		return nil, fmt.Errorf("embeddings have %d rows of width 0", rows)
	}

	order, size, err := floatLayout(h.descr)
	if err != nil {
		return nil, err
	}
	if _, err := h.elements(size, len(data)); err != nil {
		return nil, fmt.Errorf("embeddings data truncated: %w", err)
	}

	read := func(i int) float32 {
		if size == 4 {
			return math.Float32frombits(order.Uint32(data[i*4:]))
		}
		return float32(math.Float64frombits(order.Uint64(data[i*8:])))
	}

	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		row := make([]float32, cols)
		for c := 0; c < cols; c++ {
			idx := r*cols + c
			if h.fortran {
				idx = c*rows + r
			}
			row[c] = read(idx)
		}
		out[r] = row
	}
	return out, nil
}

func floatLayout(descr string) (binary.ByteOrder, int, error) {
	switch descr {
	case "<f4":
		return binary.LittleEndian, 4, nil
	case "<f8":
		return binary.LittleEndian, 8, nil
	case ">f4":
		return binary.BigEndian, 4, nil
	case ">f8":
		return binary.BigEndian, 8, nil
	default:
		return nil, 0, fmt.Errorf("unsupported embeddings dtype %q", descr)
	}
}

// encodeString writes s as a 0-d '<U{n}' array (UTF-32LE code points).
func encodeString(s string) []byte {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		n = 1
	}
	header := encodeHeader(fmt.Sprintf("<U%d", n), nil)
	buf := make([]byte, len(header), len(header)+n*4)
	copy(buf, header)
	var word [4]byte
	written := 0
	for _, r := range s {
		binary.LittleEndian.PutUint32(word[:], uint32(r))
		buf = append(buf, word[:]...)
		written++
	}
	for ; written < n; written++ {
		buf = append(buf, 0, 0, 0, 0)
	}
	return buf
}

// decodeString reads a 0-d (or single element) unicode or byte-string array.
func decodeString(raw []byte) (string, error) {
	h, data, err := decodeHeader(raw)
	if err != nil {
		return "", err
	}
	if n, err := h.elements(1, len(data)); err != nil || n != 1 {
		return "", fmt.Errorf("expected a single string, got shape %v", h.shape)
	}
	if len(h.descr) < 3 {
		return "", fmt.Errorf("unsupported metadatas dtype %q", h.descr)
	}

	kind := h.descr[1]
	width, err := strconv.Atoi(h.descr[2:])
	if err != nil || width < 0 {
		return "", fmt.Errorf("unsupported metadatas dtype %q", h.descr)
	}

	switch kind {
	case 'U':
		var order binary.ByteOrder = binary.LittleEndian
		if h.descr[0] == '>' {
			order = binary.BigEndian
		}
		if width > len(data)/4 {
			return "", fmt.Errorf("metadatas data truncated")
		}
		var sb strings.Builder
		for i := 0; i < width; i++ {
			r := rune(order.Uint32(data[i*4:]))
			if r == 0 {
				break
			}
			if !utf8.ValidRune(r) {
				return "", fmt.Errorf("invalid code point %#x in metadatas", r)
			}
			sb.WriteRune(r)
		}
		return sb.String(), nil
	case 'S':
		if width > len(data) {
			return "", fmt.Errorf("metadatas data truncated")
		}
		return string(bytes.TrimRight(data[:width], "\x00")), nil
	default:
		return "", fmt.Errorf("unsupported metadatas dtype %q", h.descr)
	}
}
