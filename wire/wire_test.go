// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"testing"

	"github.com/luxfi/execore/vmerr"
	"github.com/stretchr/testify/require"
)

func TestRenderAndParseResponseRoundTrip(t *testing.T) {
	rendered := RenderResponse(vmerr.StatusOK, "app7", []byte("ok"))
	require.Contains(t, string(rendered), "HTTP/1.1 200 OK\r\n")
	require.Contains(t, string(rendered), "Server: app7\r\n")

	status, body, err := ParseResponse(rendered)
	require.NoError(t, err)
	require.Equal(t, 200, status)
	require.Equal(t, "ok", string(body))
}

func TestRenderErrorUsesConventionalBody(t *testing.T) {
	rendered := RenderError(vmerr.StatusReentrancyAttempt, "app22", "reentrancy is not allowed")
	status, body, err := ParseResponse(rendered)
	require.NoError(t, err)
	require.Equal(t, 523, status)
	require.Equal(t, "Error: reentrancy is not allowed.", string(body))
}

func TestInjectAttachmentDigestsOrdersAscending(t *testing.T) {
	req := []byte("GET /call HTTP/1.1\r\nHost: app1\r\n\r\nbody")
	out, err := InjectAttachmentDigests(req, [][]byte{{0xab}, {0xcd}})
	require.NoError(t, err)
	require.Contains(t, string(out), "X-Attachment-Digest-0: ab\r\nX-Attachment-Digest-1: cd\r\n\r\nbody")
}

func TestInjectAttachmentDigestsRejectsMalformedRequest(t *testing.T) {
	_, err := InjectAttachmentDigests([]byte("no separator here"), nil)
	require.Error(t, err)
}
