package id_test

import (
	"github.com/planificaia/aliada/internal/id"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	require.NoError(t, id.Init(id.DefaultNode))

	before := time.Now().Add(-time.Second)
	prev := id.New()
	for range 1000 {
		next := id.New()
		require.Greater(t, next, prev, "ids must be increasing")
		prev = next
	}
	require.WithinRange(t, id.Time(prev), before, time.Now().Add(time.Second))
	require.NotEmpty(t, id.String(prev))
}
