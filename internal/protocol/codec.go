package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	requestHeaderLen  = 4 + 1 + 1 + 4 // requestId, opCode, semanticFlag, payloadLen
	responseHeaderLen = 4 + 1 + 4     // requestId, responseCode, payloadLen
)

// MarshalRequest encodes a request frame: u32 requestId | u8 opCode |
// u8 semanticFlag | u32 payloadLen | payload.
func MarshalRequest(req Request) []byte {
	buf := make([]byte, requestHeaderLen+len(req.Payload))
	binary.BigEndian.PutUint32(buf[0:4], req.RequestID)
	buf[4] = req.OpCode
	buf[5] = req.Semantic
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(req.Payload)))
	copy(buf[10:], req.Payload)
	return buf
}

// UnmarshalRequest decodes a request frame. It fails closed: any
// structural problem (frame too short, or payload_len inconsistent
// with the datagram length) is reported so the caller can reply with
// request_id=0 per the wire protocol's validation rule — the header
// is considered undecodable in either case, not merely the payload.
func UnmarshalRequest(data []byte) (Request, error) {
	if len(data) < requestHeaderLen {
		return Request{}, fmt.Errorf("request frame too short: %d bytes (need >= %d)", len(data), requestHeaderLen)
	}
	requestID := binary.BigEndian.Uint32(data[0:4])
	opCode := data[4]
	semantic := data[5]
	payloadLen := binary.BigEndian.Uint32(data[6:10])
	if requestHeaderLen+int(payloadLen) != len(data) {
		return Request{}, fmt.Errorf("payload_len %d inconsistent with datagram length %d", payloadLen, len(data))
	}
	payload := make([]byte, payloadLen)
	copy(payload, data[requestHeaderLen:])
	return Request{RequestID: requestID, OpCode: opCode, Semantic: semantic, Payload: payload}, nil
}

// MarshalResponse encodes a response frame: u32 requestId |
// u8 responseCode | u32 payloadLen | payload.
func MarshalResponse(resp Response) []byte {
	buf := make([]byte, responseHeaderLen+len(resp.Payload))
	binary.BigEndian.PutUint32(buf[0:4], resp.RequestID)
	buf[4] = resp.Code
	binary.BigEndian.PutUint32(buf[5:9], uint32(len(resp.Payload)))
	copy(buf[9:], resp.Payload)
	return buf
}

// UnmarshalResponse decodes a response frame, used by the client.
func UnmarshalResponse(data []byte) (Response, error) {
	if len(data) < responseHeaderLen {
		return Response{}, fmt.Errorf("response frame too short: %d bytes (need >= %d)", len(data), responseHeaderLen)
	}
	requestID := binary.BigEndian.Uint32(data[0:4])
	code := data[4]
	payloadLen := binary.BigEndian.Uint32(data[5:9])
	if responseHeaderLen+int(payloadLen) != len(data) {
		return Response{}, fmt.Errorf("payload_len %d inconsistent with datagram length %d", payloadLen, len(data))
	}
	payload := make([]byte, payloadLen)
	copy(payload, data[responseHeaderLen:])
	return Response{RequestID: requestID, Code: code, Payload: payload}, nil
}

// writeString appends a u16-length-prefixed UTF-8 string.
func writeString(buf []byte, s string) ([]byte, error) {
	b := []byte(s)
	if len(b) > 0xFFFF {
		return nil, fmt.Errorf("string too long: %d bytes (max 65535)", len(b))
	}
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(b)))
	buf = append(buf, lenBuf...)
	buf = append(buf, b...)
	return buf, nil
}

// readString reads a u16-length-prefixed UTF-8 string starting at offset,
// returning the string and the offset just past it.
func readString(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", offset, fmt.Errorf("not enough bytes to read string length at offset %d", offset)
	}
	length := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if offset+length > len(data) {
		return "", offset, fmt.Errorf("not enough bytes for string content (want %d) at offset %d", length, offset)
	}
	s := string(data[offset : offset+length])
	offset += length
	return s, offset, nil
}
