package resp

import (
	"bytes"
	"strconv"
)

// EncodeCommand renders args as a RESP array of bulk strings, the only
// request form a Redis server accepts from clients. Bulk strings are length
// prefixed, so arguments may contain spaces, quotes or binary data.
func EncodeCommand(args ...string) []byte {
	var buf bytes.Buffer
	buf.WriteByte('*')
	buf.WriteString(strconv.Itoa(len(args)))
	buf.WriteString("\r\n")
	for _, arg := range args {
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(arg)))
		buf.WriteString("\r\n")
		buf.WriteString(arg)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
