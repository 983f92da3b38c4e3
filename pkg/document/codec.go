package document

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"
)

// HeaderSize is the size of the frame header in bytes.
const HeaderSize = 16

// Frame is a decoded document frame
type Frame struct {
	CRC32     uint32   // CRC32 checksum over size, timestamp and payload
	Size      uint32   // Size of the payload in bytes
	Timestamp uint64   // Unix timestamp in nanoseconds
	Payload   []byte   // JSON payload
	Document  Document // Decoded payload
}

// Codec frames documents for the backing store
type Codec struct{}

// NewCodec creates a new document codec
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes a document into a frame
// Format: [CRC32(4)][Size(4)][Timestamp(8)][Payload]
func (c *Codec) Encode(doc Document) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	if len(payload) > int(^uint32(0)) {
		return nil, fmt.Errorf("document too large: %d bytes", len(payload))
	}

	f := &Frame{
		Size:      uint32(len(payload)),
		Timestamp: uint64(time.Now().UnixNano()),
		Payload:   payload,
	}
	f.CRC32 = f.checksum()

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], f.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], f.Size)
	binary.LittleEndian.PutUint64(buf[8:], f.Timestamp)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Decode validates a frame and decodes its document
func (c *Codec) Decode(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("data too short for frame header")
	}

	f := &Frame{}
	f.CRC32 = binary.LittleEndian.Uint32(data[0:4])
	f.Size = binary.LittleEndian.Uint32(data[4:8])
	f.Timestamp = binary.LittleEndian.Uint64(data[8:16])
	if len(data) < HeaderSize+int(f.Size) {
		return nil, fmt.Errorf("data too short for payload size: %d < %d", len(data), HeaderSize+int(f.Size))
	}
	f.Payload = data[HeaderSize : HeaderSize+int(f.Size)]

	if err := f.Validate(); err != nil {
		return nil, err
	}

	doc, err := Unmarshal(f.Payload)
	if err != nil {
		return nil, err
	}
	f.Document = doc
	return f, nil
}

// Validate checks the frame checksum
func (f *Frame) Validate() error {
	if sum := f.checksum(); f.CRC32 != sum {
		return fmt.Errorf("CRC32 mismatch: %d != %d", f.CRC32, sum)
	}
	return nil
}

func (f *Frame) checksum() uint32 {
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:], f.Size)
	binary.LittleEndian.PutUint64(hdr[4:], f.Timestamp)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(hdr[:])
	_, _ = crc.Write(f.Payload)
	return crc.Sum32()
}

// Unmarshal decodes a JSON payload into a Document. Integral numbers decode
// as int64, everything else numeric as float64.
func Unmarshal(payload []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return normalize(raw).(Document), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(Document, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
