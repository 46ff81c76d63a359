package retry_test

import (
	"fmt"
	"image-compare/internal/retry"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func identity(n int64) int64 {
	return n
}

func TestExponential_Delay(t *testing.T) {
	type result struct {
		delay     time.Duration
		exhausted bool
	}

	tests := []struct {
		name     string
		receiver *retry.Exponential
		in       uint
		want     result
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: 100 * time.Millisecond, Max: 10 * time.Second, Attempts: 5, Jitter: identity},
			0,
			result{100 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: 100 * time.Millisecond, Max: 10 * time.Second, Attempts: 5, Jitter: identity},
			3,
			result{800 * time.Millisecond, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: time.Second, Max: 5 * time.Second, Attempts: 10, Jitter: identity},
			4,
			result{5 * time.Second, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: time.Second, Max: 5 * time.Second, Attempts: 5, Jitter: identity},
			5,
			result{0, true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: time.Second, Max: math.MaxInt64, Attempts: math.MaxUint32, Jitter: identity},
			80,
			result{math.MaxInt64, false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			&retry.Exponential{Base: time.Hour, Max: math.MaxInt64, Attempts: 100, Jitter: identity},
			40,
			result{math.MaxInt64, false},
		},
	}

	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			delay, exhausted := receiver.Delay(in)
			if diff := cmp.Diff(want, result{delay, exhausted}, cmp.AllowUnexported(result{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestExponential_DefaultJitterStaysBelowCeiling(t *testing.T) {
	e := &retry.Exponential{Base: 10 * time.Millisecond, Max: time.Second, Attempts: 3}
	for i := 0; i < 100; i++ {
		delay, exhausted := e.Delay(2)
		if exhausted {
			t.Fatalf("Expected attempt 2 of 3 to be allowed")
		}
		if delay < 0 || delay >= 40*time.Millisecond {
			t.Fatalf("Expected delay in [0, 40ms), got %v", delay)
		}
	}
}

func TestNoRetry(t *testing.T) {
	if _, exhausted := retry.NoRetry.Delay(0); !exhausted {
		t.Errorf("Expected NoRetry to be exhausted immediately")
	}
}
