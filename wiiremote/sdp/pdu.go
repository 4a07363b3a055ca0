package sdp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type PDUId uint8

const (
	ErrorResponseId                  PDUId = 0x01
	ServiceSearchAttributeRequestId  PDUId = 0x06
	ServiceSearchAttributeResponseId PDUId = 0x07
)

func (p PDUId) String() string {
	switch p {
	case 0x01:
		return "ErrorResponse"
	case 0x06:
		return "ServiceSearchAttributeRequest"
	case 0x07:
		return "ServiceSearchAttributeResponse"
	default:
		return "UNKNOWN"
	}
}

const (
	headerLength = 5
	// continuation state info is at most 16 bytes
	maxContinuation = 16
)

var (
	ErrBadLengthPDU       = errors.New("sdp: receive bad length pdu")
	ErrUnexpectedPDU      = errors.New("sdp: receive unexpected pdu")
	ErrTransactionInvalid = errors.New("sdp: transaction id mismatch")
)

// ResponseError carries the ErrorCode of an SDP_ErrorResponse.
type ResponseError struct {
	Code uint16
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("sdp: error response 0x%04X", e.Code)
}

// ServiceSearchAttributeRequest encodes a request for every attribute of
// the records that carry class in their ServiceClassIDList.
func ServiceSearchAttributeRequest(tid uint16, class uint16, maxBytes uint16, continuation []byte) []byte {
	pattern := SequenceOf(UUID16(class))
	ids := SequenceOf(Uint32(0x0000FFFF))

	params := make([]byte, 0, len(pattern.Raw)+2+len(ids.Raw)+1+len(continuation))
	params = append(params, pattern.Raw...)
	params = binary.BigEndian.AppendUint16(params, maxBytes)
	params = append(params, ids.Raw...)
	params = append(params, byte(len(continuation)))
	params = append(params, continuation...)

	pdu := make([]byte, headerLength, headerLength+len(params))
	pdu[0] = byte(ServiceSearchAttributeRequestId)
	binary.BigEndian.PutUint16(pdu[1:3], tid)
	binary.BigEndian.PutUint16(pdu[3:5], uint16(len(params)))
	return append(pdu, params...)
}

// ParseServiceSearchAttributeResponse returns the attribute list bytes
// carried by one response PDU and the continuation state to send next
// (empty when the transfer is complete).
func ParseServiceSearchAttributeResponse(b []byte, tid uint16) (lists []byte, continuation []byte, err error) {
	if len(b) < headerLength {
		return nil, nil, ErrBadLengthPDU
	}
	id := PDUId(b[0])
	if binary.BigEndian.Uint16(b[1:3]) != tid {
		return nil, nil, ErrTransactionInvalid
	}
	paramLen := int(binary.BigEndian.Uint16(b[3:5]))
	params := b[headerLength:]
	if len(params) < paramLen {
		return nil, nil, ErrBadLengthPDU
	}
	params = params[:paramLen]

	switch id {
	case ErrorResponseId:
		if len(params) < 2 {
			return nil, nil, ErrBadLengthPDU
		}
		return nil, nil, &ResponseError{Code: binary.BigEndian.Uint16(params[:2])}
	case ServiceSearchAttributeResponseId:
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedPDU, id)
	}

	if len(params) < 3 {
		return nil, nil, ErrBadLengthPDU
	}
	count := int(binary.BigEndian.Uint16(params[:2]))
	if len(params) < 2+count+1 {
		return nil, nil, ErrBadLengthPDU
	}
	lists = params[2 : 2+count]
	contLen := int(params[2+count])
	if contLen > maxContinuation || len(params) < 2+count+1+contLen {
		return nil, nil, ErrBadLengthPDU
	}
	continuation = params[2+count+1 : 2+count+1+contLen]
	return lists, continuation, nil
}
