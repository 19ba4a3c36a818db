// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"context"
	"testing"

	"github.com/luxfi/execore/heap"
	"github.com/luxfi/execore/ids"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	dispatchers map[ids.LongID]Dispatcher
	declared    map[ids.LongID]bool
}

func (f *fakeLoader) Dispatcher(appID ids.LongID) (Dispatcher, bool) {
	d, ok := f.dispatchers[appID]
	return d, ok
}

func (f *fakeLoader) Declared(appID ids.LongID) bool { return f.declared[appID] }

func emptyModifier() *heap.Modifier {
	return heap.New(map[ids.LongID]heap.ChunkMap{})
}

func TestRunSucceedsAndForwardsGas(t *testing.T) {
	loader := &fakeLoader{dispatchers: map[ids.LongID]Dispatcher{
		1: func(ctx context.Context, appID ids.LongID, request []byte) (int, []byte, error) {
			return 200, []byte("ok"), nil
		},
	}}

	e := New()
	resp := e.Run(context.Background(), Request{
		CalledAppID: 1,
		HTTPRequest: []byte("GET / HTTP/1.1\r\n\r\n"),
		Gas:         100000,
		Modifier:    emptyModifier(),
		Apps:        loader,
	})
	require.Equal(t, 200, resp.Status)
	require.Equal(t, "ok", string(resp.Body))
}

func TestRunRejectsMissingDispatcher(t *testing.T) {
	loader := &fakeLoader{dispatchers: map[ids.LongID]Dispatcher{}}
	e := New()
	resp := e.Run(context.Background(), Request{
		CalledAppID: 99,
		Gas:         100000,
		Modifier:    emptyModifier(),
		Apps:        loader,
	})
	require.Equal(t, 404, resp.Status)
}

func TestRunRejectsGasTooLow(t *testing.T) {
	loader := &fakeLoader{dispatchers: map[ids.LongID]Dispatcher{
		1: func(ctx context.Context, appID ids.LongID, request []byte) (int, []byte, error) {
			return 200, nil, nil
		},
	}}
	e := New()
	resp := e.Run(context.Background(), Request{
		CalledAppID: 1,
		Gas:         1, // forwardGas(1, 255) = 0, below minClocks
		Modifier:    emptyModifier(),
		Apps:        loader,
	})
	require.Equal(t, int(521), resp.Status) // StatusInvalidOperation
}

func TestRunTranslatesPanicToMemoryFault(t *testing.T) {
	loader := &fakeLoader{dispatchers: map[ids.LongID]Dispatcher{
		1: func(ctx context.Context, appID ids.LongID, request []byte) (int, []byte, error) {
			var p *int
			_ = *p // nil dereference
			return 200, nil, nil
		},
	}}
	e := New()
	resp := e.Run(context.Background(), Request{
		CalledAppID: 1,
		Gas:         100000,
		Modifier:    emptyModifier(),
		Apps:        loader,
	})
	require.Equal(t, 524, resp.Status) // StatusMemoryFault
}

func TestDependantCallRejectsUndeclaredApp(t *testing.T) {
	loader := &fakeLoader{dispatchers: map[ids.LongID]Dispatcher{}, declared: map[ids.LongID]bool{}}
	session := NewSession(emptyModifier(), loader, NewFailureManager(nil, nil), 100000, nil)
	_, err := session.DependantCall(context.Background(), 2, nil)
	require.Error(t, err)
}

func TestEnterAreaDetectsReentrancy(t *testing.T) {
	session := NewSession(emptyModifier(), &fakeLoader{}, NewFailureManager(nil, nil), 100000, nil)
	require.NoError(t, session.EnterArea(5))
	require.Error(t, session.EnterArea(5))
	session.ExitArea(5)
	require.NoError(t, session.EnterArea(5))
}

func TestSessionSignatureManagerIsPreSeeded(t *testing.T) {
	session := NewSession(emptyModifier(), &fakeLoader{}, NewFailureManager(nil, nil), 100000, []string{"hello"})
	require.True(t, session.VerifySignature(0, "hello"))
	require.False(t, session.VerifySignature(0, "other"))
	require.True(t, session.VerifyAndInvalidateSignature(0, "hello"))
	require.False(t, session.VerifySignature(0, "hello"))
}
