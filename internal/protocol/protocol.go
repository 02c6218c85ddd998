// Package protocol implements the aggregator's line-oriented wire
// protocol: a deliberately minimal HTTP-shaped exchange where only two
// routes and two headers have defined behavior. It is not a general
// HTTP parser; anything outside the contract degrades to 400 rather
// than being interpreted best-effort.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Status lines understood by both sides of the protocol.
const (
	StatusOK         = "200 OK"
	StatusCreated    = "201 Created"
	StatusNoContent  = "204 No Content"
	StatusBadRequest = "400 Bad Request"
	StatusNotFound   = "404 Not Found"
	StatusInternal   = "500 Internal Server Error"
)

// Headers consumed by the protocol; everything else is ignored.
const (
	HeaderContentLength = "content-length"
	HeaderLamportClock  = "lamport-clock"
)

// ErrMalformed marks a protocol violation: the peer sent bytes that do
// not parse as a request or response. The connection is closed and the
// violation is never retried server-side.
var ErrMalformed = errors.New("malformed protocol message")

// Request is one parsed wire request.
type Request struct {
	Method        string
	Path          string
	Version       string
	ContentLength int
	LamportClock  int
	Body          []byte
}

// Response is one parsed or to-be-written wire response.
type Response struct {
	Status       string
	LamportClock int
	Body         []byte
}

// StatusCode extracts the numeric code from the status line.
func (r *Response) StatusCode() int {
	code, _, _ := strings.Cut(r.Status, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

// ReadRequest consumes exactly one request from the stream: a request
// line of three space-separated tokens, header lines up to a blank
// line, then exactly Content-Length body bytes. A short body read is a
// protocol error.
func ReadRequest(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformed, line)
	}
	req := &Request{Method: parts[0], Path: parts[1], Version: parts[2]}

	if err := readHeaders(r, &req.ContentLength, &req.LamportClock); err != nil {
		return nil, err
	}

	if req.ContentLength > 0 {
		body := make([]byte, req.ContentLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: short body read: %v", ErrMalformed, err)
		}
		req.Body = body
	}
	return req, nil
}

// Write emits the request in wire form. The Lamport-Clock header must
// already carry the sender's post-tick value.
func (req *Request) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", req.Method, req.Path, req.Version)
	fmt.Fprintf(&b, "Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Lamport-Clock: %d\r\n", req.LamportClock)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(req.Body))
	b.WriteString("\r\n")
	b.Write(req.Body)
	_, err := io.WriteString(w, b.String())
	return err
}

// Write emits the response in wire form: status line, Content-Type,
// Lamport-Clock, Content-Length, blank line, body.
func (resp *Response) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %s\r\n", resp.Status)
	b.WriteString("Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Lamport-Clock: %d\r\n", resp.LamportClock)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(resp.Body))
	b.WriteString("\r\n")
	b.Write(resp.Body)
	_, err := io.WriteString(w, b.String())
	return err
}

// ReadResponse consumes exactly one response from the stream.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	version, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(version, "HTTP/") {
		return nil, fmt.Errorf("%w: bad status line %q", ErrMalformed, line)
	}
	resp := &Response{Status: status}

	var contentLength int
	if err := readHeaders(r, &contentLength, &resp.LamportClock); err != nil {
		return nil, err
	}

	if contentLength > 0 {
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: short body read: %v", ErrMalformed, err)
		}
		resp.Body = body
	}
	return resp, nil
}

// readHeaders scans header lines until the blank separator, extracting
// the two recognized headers and ignoring all others.
func readHeaders(r *bufio.Reader, contentLength, lamportClock *int) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(name) {
		case HeaderContentLength:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, value)
			}
			*contentLength = n
		case HeaderLamportClock:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: bad Lamport-Clock %q", ErrMalformed, value)
			}
			*lamportClock = n
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
