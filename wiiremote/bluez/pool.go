package bluez

import "sync"

// default L2CAP MTU, large enough for any HID or SDP packet a remote sends
const bufferSize = 672

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, bufferSize)
		return &buf
	},
}

func allocBuffer() *[]byte {
	buf := bufferPool.Get().(*[]byte)
	*buf = (*buf)[:bufferSize]
	return buf
}

func freeBuffer(buf *[]byte) {
	if cap(*buf) == bufferSize {
		bufferPool.Put(buf)
	}
}
