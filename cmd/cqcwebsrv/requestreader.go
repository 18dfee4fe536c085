package main

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/worker"
)

// readHTTPRequest adapts net/http's own request-line/header parser into the
// httpmsg.Request the core's worker pipeline operates on. The HTTP/1.1
// wire parser itself is a commodity left to net/http.ReadRequest rather
// than reimplemented here.
func readHTTPRequest(conn net.Conn, deadline time.Time) (*httpmsg.Request, error) {
	conn.SetReadDeadline(deadline)
	raw, err:= http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return nil, err
	}
	defer raw.Body.Close()

	body, err:= io.ReadAll(io.LimitReader(raw.Body, 64<<20))
	if err != nil {
		return nil, err
	}

	header:= httpmsg.NewHeader()
	for key, values:= range raw.Header {
		for _, v:= range values {
			header.Add(key, v)
		}
	}

	contentType, charset:= httpmsg.ParseContentType(raw.Header.Get("Content-Type"))

	return &httpmsg.Request{
		Method: raw.Method,
		Path: raw.URL.Path,
		RawQuery: raw.URL.RawQuery,
		Proto: raw.Proto,
		Header: header,
		ContentType: contentType,
		Charset: charset,
		Body: body,
		Query: httpmsg.ParseQuery(raw.URL.RawQuery),
	}, nil
}

var _ worker.RequestReader = readHTTPRequest
