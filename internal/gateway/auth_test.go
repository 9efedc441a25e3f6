package gateway

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soyeahso/gork/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
	assert.True(t, safeEqual("", ""))
	assert.False(t, safeEqual("secret", "wrong"))
	assert.False(t, safeEqual("short", "longer-string"))
	assert.False(t, safeEqual("secret", ""))
	assert.False(t, safeEqual("", "secret"))
}

func TestResolveAuth(t *testing.T) {
	t.Run("config token", func(t *testing.T) {
		auth := ResolveAuth(config.GatewayAuth{Mode: "token", Token: "config-token"})
		assert.Equal(t, "token", auth.Mode)
		assert.Equal(t, "config-token", auth.Token)
	})
	t.Run("defaults to token mode", func(t *testing.T) {
		assert.Equal(t, "token", ResolveAuth(config.GatewayAuth{Token: "t"}).Mode)
	})
	t.Run("defaults to password mode when password set", func(t *testing.T) {
		assert.Equal(t, "password", ResolveAuth(config.GatewayAuth{Password: "p"}).Mode)
	})
	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("GORK_GATEWAY_TOKEN", "env-token")
		t.Setenv("GORK_GATEWAY_PASSWORD", "env-pass")
		auth := ResolveAuth(config.GatewayAuth{Mode: "token"})
		assert.Equal(t, "env-token", auth.Token)
		assert.Equal(t, "env-pass", auth.Password)
	})
	t.Run("config wins over env", func(t *testing.T) {
		t.Setenv("GORK_GATEWAY_TOKEN", "env-token")
		auth := ResolveAuth(config.GatewayAuth{Mode: "token", Token: "config-token"})
		assert.Equal(t, "config-token", auth.Token)
	})
}

func TestAuthorize(t *testing.T) {
	tokenAuth := ResolvedAuth{Mode: "token", Token: "tok"}
	passAuth := ResolvedAuth{Mode: "password", Password: "pw"}

	tests := []struct {
		name   string
		server ResolvedAuth
		client *ConnectAuth
		ok     bool
		method string
		reason string
	}{
		{"token ok", tokenAuth, &ConnectAuth{Token: "tok"}, true, "token", ""},
		{"token mismatch", tokenAuth, &ConnectAuth{Token: "nope"}, false, "", "token_mismatch"},
		{"token missing", tokenAuth, &ConnectAuth{Password: "pw"}, false, "", "token required"},
		{"server token unset", ResolvedAuth{Mode: "token"}, &ConnectAuth{Token: "tok"}, false, "", "server token not configured"},
		{"password ok", passAuth, &ConnectAuth{Password: "pw"}, true, "password", ""},
		{"password mismatch", passAuth, &ConnectAuth{Password: "x"}, false, "", "password_mismatch"},
		{"password missing", passAuth, &ConnectAuth{}, false, "", "password required"},
		{"no credentials", tokenAuth, nil, false, "", "no credentials provided"},
		{"unknown mode", ResolvedAuth{Mode: "oauth"}, &ConnectAuth{Token: "tok"}, false, "", "unknown auth mode: oauth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Authorize(tt.server, tt.client)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestAuthRateLimiter(t *testing.T) {
	limiter := newAuthRateLimiter()
	assert.True(t, limiter.allow("192.168.1.1:12345"))

	for range authRateMaxFails - 1 {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.True(t, limiter.allow("192.168.1.1:999"))

	limiter.recordFailure("192.168.1.1:12345")
	assert.False(t, limiter.allow("192.168.1.1:999"), "same host, any port")
	assert.True(t, limiter.allow("192.168.1.2:12345"))
}

func TestAuthRateLimiter_AddressWithoutPort(t *testing.T) {
	limiter := newAuthRateLimiter()
	for range authRateMaxFails {
		limiter.recordFailure("192.168.1.1")
	}
	assert.False(t, limiter.allow("192.168.1.1"))
}

func TestAuthRateLimiter_WindowExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newAuthRateLimiter()
	limiter.now = func() time.Time { return now }

	for range authRateMaxFails {
		limiter.recordFailure("10.0.0.1:1")
	}
	assert.False(t, limiter.allow("10.0.0.1:1"))

	now = now.Add(authRateWindow + time.Second)
	limiter.prune()
	assert.Empty(t, limiter.failures)
	assert.True(t, limiter.allow("10.0.0.1:1"))
}

func TestSameOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "http://localhost:18790/ws", nil)
	assert.True(t, sameOrigin(req), "no Origin header")

	req.Header.Set("Origin", "http://localhost:18790")
	assert.True(t, sameOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameOrigin(req))
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:18790", resolveBindAddr(config.GatewayConfig{Port: 18790, Bind: "loopback"}))
	assert.Equal(t, "0.0.0.0:9000", resolveBindAddr(config.GatewayConfig{Port: 9000, Bind: "lan"}))
	assert.Equal(t, "127.0.0.1:1", resolveBindAddr(config.GatewayConfig{Port: 1}))
}
