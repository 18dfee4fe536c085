package worker

import (
	"fmt"
	"net"
	"strconv"

	"github.com/cqc-go/webcore/pkg/httpmsg"
)

// writeHTTPResponse serializes resp onto conn. This core only ever writes
// responses it already fully composed in memory, never a raw proxied byte
// stream, so a plain header/body writer is all that's needed here.
func writeHTTPResponse(conn net.Conn, resp *httpmsg.Response) {
	if resp.Body != nil {
		resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	fmt.Fprintf(conn, "HTTP/1.1 %d %s\r\n", resp.Status, resp.Reason)
	for _, key:= range resp.Header.Keys() {
		for _, v:= range resp.Header.Values(key) {
			fmt.Fprintf(conn, "%s: %s\r\n", key, v)
		}
	}
	fmt.Fprint(conn, "\r\n")
	if len(resp.Body) > 0 {
		conn.Write(resp.Body)
	}
}
