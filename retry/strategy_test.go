package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStrategy_Delay_IsExponentialAndCapped(t *testing.T) {
	req := require.New(t)
	strategy := Strategy{
		MaxAttempts:     5,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        500 * time.Millisecond,
		ExponentialBase: 2.0,
	}

	req.Equal(100*time.Millisecond, strategy.Delay(0))
	req.Equal(200*time.Millisecond, strategy.Delay(1))
	req.Equal(400*time.Millisecond, strategy.Delay(2))
	// Capped afterwards
	req.Equal(500*time.Millisecond, strategy.Delay(3))
	req.Equal(500*time.Millisecond, strategy.Delay(10))
}

func TestStrategy_Do_StopsOnSuccess(t *testing.T) {
	req := require.New(t)
	strategy := Strategy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2.0}

	calls := 0
	err := strategy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("not yet")
		}
		return nil
	})

	req.NoError(err)
	req.Equal(3, calls)
}

func TestStrategy_Do_ReturnsLastErrorWhenExhausted(t *testing.T) {
	req := require.New(t)
	strategy := Strategy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2.0}

	calls := 0
	err := strategy.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("attempt %d failed", calls)
	})

	req.EqualError(err, "attempt 3 failed")
	req.Equal(3, calls)
}

func TestStrategy_Do_HonorsCancellation(t *testing.T) {
	req := require.New(t)
	strategy := Strategy{MaxAttempts: 100, BaseDelay: time.Hour, MaxDelay: time.Hour, ExponentialBase: 2.0}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := strategy.Do(ctx, func() error { return fmt.Errorf("broker down") })
	req.ErrorIs(err, context.Canceled)
}
