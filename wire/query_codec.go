package wire

import (
	"encoding/binary"
	"fmt"
)

// Query flag bits, bit-exact with spec.md §6:
//
//	 7 6 5 4 3 2 1 0
//	+-+-+-+-+-+-+-+-+
//	|Z|C|P|  QUERY  |
//	+-+-+-+---------+
const (
	queryFlagP byte = 1 << 5 // Parameters present
	queryFlagC byte = 1 << 6 // Consolidation present
	queryFlagZ byte = 1 << 7 // Extensions present
)

// Extension ids/encodings for the Z-extension TLV list.
const (
	extIDSourceInfo uint8 = 0x01
	extIDQueryBody  uint8 = 0x02
)

// EncodeRequestBody renders a RequestBody into the Query message's
// flags byte plus payload, following the layout:
//
//	~ parameters    ~   if P==1, length-prefixed bytes
//	~ consolidation ~   if C==1, one byte enum {None=0, Monotonic=1, Latest=2}
//	~ extensions    ~   if Z==1, TLV list: SourceInfo, QueryBody
func EncodeRequestBody(b RequestBody) (flags byte, payload []byte) {
	var buf []byte

	if b.HasParameters {
		flags |= queryFlagP
		buf = appendLenPrefixed(buf, []byte(b.Parameters))
	}
	if b.HasConsolidation {
		flags |= queryFlagC
		buf = append(buf, byte(b.Consolidation))
	}
	if b.SourceInfo != nil || b.QueryBody != nil {
		flags |= queryFlagZ
		if b.SourceInfo != nil {
			buf = appendExtSourceInfo(buf, *b.SourceInfo, b.QueryBody != nil)
		}
		if b.QueryBody != nil {
			buf = appendExtQueryBody(buf, *b.QueryBody, false)
		}
	}
	return flags, buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, data...)
	return buf
}

func extHeader(id uint8, more bool) byte {
	h := id
	if more {
		h |= 0x80
	}
	return h
}

func appendExtSourceInfo(buf []byte, si SourceInfo, more bool) []byte {
	buf = append(buf, extHeader(extIDSourceInfo, more))
	buf = append(buf, si.ZID[:]...)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], si.EID)
	buf = append(buf, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], si.SN)
	buf = append(buf, tmp[:]...)
	return buf
}

func appendExtQueryBody(buf []byte, qb QueryBody, more bool) []byte {
	buf = append(buf, extHeader(extIDQueryBody, more))
	buf = appendLenPrefixed(buf, []byte(qb.Encoding))
	buf = appendLenPrefixed(buf, qb.Payload)
	return buf
}

// DecodeRequestBody parses flags+payload back into a RequestBody. It
// is the inverse of EncodeRequestBody for any value that function can
// produce.
func DecodeRequestBody(flags byte, payload []byte) (RequestBody, error) {
	var b RequestBody
	r := payload

	if flags&queryFlagP != 0 {
		n, data, rest, err := readLenPrefixed(r)
		if err != nil {
			return b, fmt.Errorf("parameters: %w", err)
		}
		_ = n
		b.HasParameters = true
		b.Parameters = string(data)
		r = rest
	}
	if flags&queryFlagC != 0 {
		if len(r) < 1 {
			return b, fmt.Errorf("consolidation: truncated")
		}
		b.HasConsolidation = true
		b.Consolidation = ConsolidationMode(r[0])
		r = r[1:]
	}
	if flags&queryFlagZ != 0 {
		for len(r) > 0 {
			header := r[0]
			r = r[1:]
			id := header &^ 0x80
			more := header&0x80 != 0
			switch id {
			case extIDSourceInfo:
				if len(r) < 24 {
					return b, fmt.Errorf("source-info extension: truncated")
				}
				var si SourceInfo
				copy(si.ZID[:], r[:16])
				si.EID = binary.BigEndian.Uint32(r[16:20])
				si.SN = binary.BigEndian.Uint32(r[20:24])
				r = r[24:]
				b.SourceInfo = &si
			case extIDQueryBody:
				_, enc, rest, err := readLenPrefixed(r)
				if err != nil {
					return b, fmt.Errorf("query-body encoding: %w", err)
				}
				r = rest
				_, pl, rest2, err := readLenPrefixed(r)
				if err != nil {
					return b, fmt.Errorf("query-body payload: %w", err)
				}
				r = rest2
				b.QueryBody = &QueryBody{Encoding: string(enc), Payload: pl}
			default:
				return b, fmt.Errorf("unknown query extension id %d", id)
			}
			if !more {
				break
			}
		}
	}
	return b, nil
}

func readLenPrefixed(r []byte) (n uint64, data, rest []byte, err error) {
	length, n64 := binary.Uvarint(r)
	if n64 <= 0 {
		return 0, nil, nil, fmt.Errorf("bad varint length")
	}
	r = r[n64:]
	if uint64(len(r)) < length {
		return 0, nil, nil, fmt.Errorf("truncated: need %d, have %d", length, len(r))
	}
	return length, r[:length], r[length:], nil
}
