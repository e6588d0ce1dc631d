package protocol

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Value tags. Attribute values and event data use the same encoding.
const (
	tagNil    byte = 0x00
	tagFalse  byte = 0x01
	tagTrue   byte = 0x02
	tagInt    byte = 0x03
	tagFloat  byte = 0x04
	tagString byte = 0x05
	tagBytes  byte = 0x06
	tagList   byte = 0x07
	tagMap    byte = 0x08
)

// ErrUnknownValueTag is returned for a value with an unknown tag byte.
var ErrUnknownValueTag = errors.New("protocol: unknown value tag")

// WriteValue appends a tagged value. Integers of every width become int64;
// unsigned values above math.MaxInt64 and every other unsupported type are
// sent as their fmt.Sprint form. Map keys are written in sorted order so the
// output is deterministic.
func (e *Encoder) WriteValue(v any) {
	switch v := v.(type) {
	case nil:
		e.WriteByte(tagNil)
	case bool:
		if v {
			e.WriteByte(tagTrue)
		} else {
			e.WriteByte(tagFalse)
		}
	case int:
		e.writeInt(int64(v))
	case int8:
		e.writeInt(int64(v))
	case int16:
		e.writeInt(int64(v))
	case int32:
		e.writeInt(int64(v))
	case int64:
		e.writeInt(v)
	case uint:
		e.writeUint(uint64(v))
	case uint8:
		e.writeInt(int64(v))
	case uint16:
		e.writeInt(int64(v))
	case uint32:
		e.writeInt(int64(v))
	case uint64:
		e.writeUint(v)
	case float32:
		e.WriteByte(tagFloat)
		e.WriteFloat64(float64(v))
	case float64:
		e.WriteByte(tagFloat)
		e.WriteFloat64(v)
	case string:
		e.WriteByte(tagString)
		e.WriteString(v)
	case []byte:
		e.WriteByte(tagBytes)
		e.WriteLenBytes(v)
	case []any:
		e.WriteByte(tagList)
		e.WriteUvarint(uint64(len(v)))
		for _, item := range v {
			e.WriteValue(item)
		}
	case []string:
		e.WriteByte(tagList)
		e.WriteUvarint(uint64(len(v)))
		for _, item := range v {
			e.WriteByte(tagString)
			e.WriteString(item)
		}
	case map[string]any:
		e.WriteByte(tagMap)
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.WriteUvarint(uint64(len(keys)))
		for _, k := range keys {
			e.WriteString(k)
			e.WriteValue(v[k])
		}
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		e.WriteValue(m)
	default:
		e.WriteByte(tagString)
		e.WriteString(fmt.Sprint(v))
	}
}

func (e *Encoder) writeInt(v int64) {
	e.WriteByte(tagInt)
	e.WriteSvarint(v)
}

func (e *Encoder) writeUint(v uint64) {
	if v > math.MaxInt64 {
		e.WriteByte(tagString)
		e.WriteString(fmt.Sprint(v))
		return
	}
	e.writeInt(int64(v))
}

// ReadValue reads a tagged value. Integers decode as int64, lists as []any
// and maps as map[string]any.
func (d *Decoder) ReadValue() (any, error) {
	return d.readValue(0)
}

func (d *Decoder) readValue(depth int) (any, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNil:
		return nil, nil
	case tagFalse:
		return false, nil
	case tagTrue:
		return true, nil
	case tagInt:
		return d.ReadSvarint()
	case tagFloat:
		return d.ReadFloat64()
	case tagString:
		return d.ReadString()
	case tagBytes:
		return d.ReadLenBytes()
	case tagList:
		if depth >= MaxValueDepth {
			return nil, ErrMaxDepthExceeded
		}
		n, err := d.ReadCount()
		if err != nil {
			return nil, err
		}
		list := make([]any, n)
		for i := range list {
			if list[i], err = d.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		return list, nil
	case tagMap:
		if depth >= MaxValueDepth {
			return nil, ErrMaxDepthExceeded
		}
		n, err := d.ReadCount()
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			k, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			if m[k], err = d.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w 0x%02x", ErrUnknownValueTag, tag)
}
