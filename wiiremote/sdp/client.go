package sdp

import (
	"errors"
	"fmt"
	"io"
)

// maxRounds bounds continuation round trips for a single query.
const maxRounds = 64

var ErrTooManyRounds = errors.New("sdp: too many continuation rounds")

// Client runs ServiceSearchAttribute transactions over a connected SDP
// channel. conn must preserve packet boundaries (L2CAP SEQPACKET).
type Client struct {
	conn io.ReadWriter
	mtu  int
	tid  uint16
}

func NewClient(conn io.ReadWriter, mtu int) *Client {
	return &Client{conn: conn, mtu: mtu}
}

// SearchAttributes returns every attribute of every record advertising class.
func (c *Client) SearchAttributes(class uint16) ([][]Attribute, error) {
	var lists, continuation []byte
	buf := make([]byte, c.mtu)
	// leave room for the response header, byte count and continuation state
	maxBytes := uint16(c.mtu - headerLength - 2 - 1 - maxContinuation)

	for round := 0; round < maxRounds; round++ {
		c.tid++
		req := ServiceSearchAttributeRequest(c.tid, class, maxBytes, continuation)
		if _, err := c.conn.Write(req); nil != err {
			return nil, fmt.Errorf("sdp: write request: %w", err)
		}

		n, err := c.conn.Read(buf)
		if nil != err {
			return nil, fmt.Errorf("sdp: read response: %w", err)
		}
		part, next, err := ParseServiceSearchAttributeResponse(buf[:n], c.tid)
		if nil != err {
			return nil, err
		}
		lists = append(lists, part...)
		if len(next) == 0 {
			return Records(lists)
		}
		continuation = append(continuation[:0], next...)
	}
	return nil, ErrTooManyRounds
}
