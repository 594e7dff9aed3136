package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nurlybekov/circulation-service/pkg/circuitbreaker"
)

func TestCircuitBreaker_Call(t *testing.T) {
	errService := errors.New("service error")
	failing := func() error { return errService }
	successful := func() error { return nil }

	t.Run("stays closed while under the failure percentile", func(t *testing.T) {
		cb := circuitbreaker.New(10, time.Second, 0.5, 2)
		for i := 0; i < 4; i++ {
			require.ErrorIs(t, cb.Call(failing), errService)
		}
		require.NoError(t, cb.Call(successful))
	})

	t.Run("opens after failure percentile is reached", func(t *testing.T) {
		cb := circuitbreaker.New(10, time.Minute, 0.5, 2)
		for i := 0; i < 5; i++ {
			require.ErrorIs(t, cb.Call(failing), errService)
		}
		require.ErrorIs(t, cb.Call(successful), circuitbreaker.ErrOpen)
	})

	t.Run("recovers through half-open after timeout", func(t *testing.T) {
		cb := circuitbreaker.New(4, 10*time.Millisecond, 0.5, 1)
		for i := 0; i < 2; i++ {
			require.ErrorIs(t, cb.Call(failing), errService)
		}
		require.ErrorIs(t, cb.Call(successful), circuitbreaker.ErrOpen)

		time.Sleep(20 * time.Millisecond)

		// half-open: needs recoveryRequests+1 consecutive successes
		require.NoError(t, cb.Call(successful))
		require.NoError(t, cb.Call(successful))
		require.NoError(t, cb.Call(successful))
		require.ErrorIs(t, cb.Call(failing), errService)
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		cb := circuitbreaker.New(4, 10*time.Millisecond, 0.5, 5)
		for i := 0; i < 2; i++ {
			require.ErrorIs(t, cb.Call(failing), errService)
		}
		require.ErrorIs(t, cb.Call(successful), circuitbreaker.ErrOpen)

		time.Sleep(20 * time.Millisecond)
		require.ErrorIs(t, cb.Call(failing), errService)
		require.ErrorIs(t, cb.Call(successful), circuitbreaker.ErrOpen)
	})
}
