// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire renders and parses the HTTP/1.1-shaped request and response
// lines every dispatcher call crosses, the same request/response codec the
// original's invoke_dispatcher and dependant_call speak. It follows the
// teacher codec package's Marshal/Unmarshal shape, specialized to a single
// fixed format instead of a versioned generic one.
package wire

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/luxfi/execore/vmerr"
)

var reasonPhrases = map[vmerr.StatusCode]string{
	vmerr.StatusOK:                      "OK",
	vmerr.StatusBadRequest:               "Bad Request",
	vmerr.StatusForbidden:                "Forbidden",
	vmerr.StatusNotFound:                 "Not Found",
	vmerr.StatusDeclaredLimitViolated:    "Declared Limits Violated",
	vmerr.StatusExecutionTimeout:         "Execution Timeout",
	vmerr.StatusInternalError:            "Internal Error",
	vmerr.StatusLimitExceeded:            "Limit Exceeded",
	vmerr.StatusInvalidOperation:         "Invalid Operation",
	vmerr.StatusArithmeticError:          "Arithmetic Error",
	vmerr.StatusReentrancyAttempt:        "Reentrancy Attempt",
	vmerr.StatusMemoryFault:              "Memory Fault",
	vmerr.StatusOutOfRange:               "Out of Range",
}

// ReasonPhrase returns the status table's reason phrase for status, or
// "Unknown" for a status this executor never produces.
func ReasonPhrase(status vmerr.StatusCode) string {
	if r, ok := reasonPhrases[status]; ok {
		return r
	}
	return "Unknown"
}

// RenderResponse formats status, server (the responding app), and body into
// the canonical "HTTP/1.1 <code> <reason>\r\nServer: <app>\r\n
// Content-Length: <n>\r\n\r\n<body>" shape used uniformly for both normal
// and error responses.
func RenderResponse(status vmerr.StatusCode, server string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", status, ReasonPhrase(status))
	fmt.Fprintf(&buf, "Server: %s\r\n", server)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)
	return buf.Bytes()
}

// RenderError is RenderResponse with the conventional "Error: <msg>."
// body, used for every failure path so that callers can treat normal and
// error responses uniformly.
func RenderError(status vmerr.StatusCode, server, msg string) []byte {
	body := []byte(fmt.Sprintf("Error: %s.", msg))
	return RenderResponse(status, server, body)
}

// ParseResponse extracts the status code and body from a rendered response.
func ParseResponse(data []byte) (status int, body []byte, err error) {
	r := bufio.NewReader(bytes.NewReader(data))
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, nil, fmt.Errorf("wire: missing status line: %w", err)
	}
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(fields) < 2 {
		return 0, nil, fmt.Errorf("wire: malformed status line %q", line)
	}
	status, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, nil, fmt.Errorf("wire: malformed status code %q: %w", fields[1], err)
	}
	for {
		hdr, err := r.ReadString('\n')
		if err != nil {
			break
		}
		if strings.TrimRight(hdr, "\r\n") == "" {
			break
		}
	}
	rest, _ := r.ReadString(0)
	return status, []byte(rest), nil
}

// InjectAttachmentDigests appends one "X-Attachment-Digest-<n>: <hex>"
// header per digest, in ascending order, to request just before the blank
// line separating headers from body -- the canonical format resolving how
// an attachment's digest is made visible to the callee's dispatcher.
func InjectAttachmentDigests(request []byte, digests [][]byte) ([]byte, error) {
	idx := bytes.Index(request, []byte("\r\n\r\n"))
	if idx < 0 {
		return nil, fmt.Errorf("wire: request has no header/body separator")
	}
	var hdrs bytes.Buffer
	for i, d := range digests {
		fmt.Fprintf(&hdrs, "X-Attachment-Digest-%d: %s\r\n", i, hex.EncodeToString(d))
	}

	out := make([]byte, 0, len(request)+hdrs.Len())
	out = append(out, request[:idx+2]...)
	out = append(out, hdrs.Bytes()...)
	out = append(out, request[idx+2:]...)
	return out, nil
}
