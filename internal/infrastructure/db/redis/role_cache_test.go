package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
)

func TestNewRoleCache_DefaultTTL(t *testing.T) {
	if c := NewRoleCache(nil, 0); c.ttl != defaultRoleTTL {
		t.Fatalf("expected default ttl, got %s", c.ttl)
	}
	if c := NewRoleCache(nil, time.Minute); c.ttl != time.Minute {
		t.Fatalf("expected configured ttl, got %s", c.ttl)
	}
}

func TestRoleCache_Key(t *testing.T) {
	if got := NewRoleCache(nil, 0).key("user-1"); got != "role:user-1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRoleCache_UnreachableServerIsAnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	before := testutil.ToFloat64(metrics.RoleCacheLookupsTotal.WithLabelValues("error"))

	_, ok, err := NewRoleCache(client, 0).Get(context.Background(), "user-1")
	if err == nil || ok {
		t.Fatalf("expected an error and no hit, got ok=%v err=%v", ok, err)
	}
	if after := testutil.ToFloat64(metrics.RoleCacheLookupsTotal.WithLabelValues("error")); after != before+1 {
		t.Fatalf("expected error lookup to be counted, %v -> %v", before, after)
	}
}

func TestConfigOptions(t *testing.T) {
	opts := Config{Addr: "cache:6379", DB: 2}.options()
	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.ReadTimeout != defaultOpTimeout || opts.WriteTimeout != defaultOpTimeout {
		t.Fatalf("expected default op timeout, got %s/%s", opts.ReadTimeout, opts.WriteTimeout)
	}
}
