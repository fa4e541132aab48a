package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

type report struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

func TestGetOrCompute_InProcess(t *testing.T) {
	c := NewReportCache(8, time.Minute, time.Second)
	calls := 0
	compute := func(context.Context) (report, error) {
		calls++
		return report{Score: 0.75, Label: "ok"}, nil
	}
	ctx := context.Background()
	first, hit, err := GetOrCompute(ctx, c, "k", compute)
	if err != nil || hit || first.Label != "ok" {
		t.Fatalf("first call: %+v hit=%v err=%v", first, hit, err)
	}
	second, hit, err := GetOrCompute(ctx, c, "k", compute)
	if err != nil || !hit || second != first {
		t.Fatalf("second call: %+v hit=%v err=%v", second, hit, err)
	}
	if calls != 1 {
		t.Fatalf("compute ran %d times", calls)
	}
}

func TestGetOrCompute_ErrorIsNotCached(t *testing.T) {
	c := NewReportCache(8, time.Minute, time.Second)
	boom := errors.New("boom")
	if _, _, err := GetOrCompute(context.Background(), c, "k", func(context.Context) (report, error) { return report{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed computation was cached")
	}
}

func TestCacheKey(t *testing.T) {
	a, _ := CacheKey("detector", map[string]any{"x": 1}, "ifrs")
	b, _ := CacheKey("detector", map[string]any{"x": 1}, "ifrs")
	c, _ := CacheKey("detector", map[string]any{"x": 2}, "ifrs")
	if a != b || a == c {
		t.Fatalf("unexpected keys %s %s %s", a, b, c)
	}
}
