// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrometheusRegistryExposesInstrumentsOverHTTP(t *testing.T) {
	reg := NewPromRegistry()
	registry, err := NewPrometheusRegistry(reg)
	require.NoError(t, err)

	registry.GasConsumed.Add(42)
	registry.ReadyQueueDepth.Set(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "execore_gas_consumed_total 42"))
	require.True(t, strings.Contains(body, "execore_ready_queue_depth 3"))
}

func TestPrometheusRegistryRejectsDoubleRegistration(t *testing.T) {
	reg := NewPromRegistry()
	_, err := NewPrometheusRegistry(reg)
	require.NoError(t, err)

	_, err = NewPrometheusRegistry(reg)
	require.Error(t, err)
}
