package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRequest(cfg SwaggerConfig, remoteIP string) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(SwaggerProtection(cfg))
	router.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteIP + ":4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSwaggerProtection(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w := swaggerRequest(SwaggerConfig{Enabled: false}, "127.0.0.1")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
	})

	t.Run("enabled without restrictions", func(t *testing.T) {
		w := swaggerRequest(SwaggerConfig{Enabled: true}, "203.0.113.9")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ip allowed", func(t *testing.T) {
		w := swaggerRequest(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.1.2.3"}}, "10.1.2.3")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("cidr allowed", func(t *testing.T) {
		w := swaggerRequest(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.200.0.1")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ip denied", func(t *testing.T) {
		w := swaggerRequest(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "bogus"}}, "192.168.1.1")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestIsIPAllowed(t *testing.T) {
	_, network, _ := net.ParseCIDR("192.168.0.0/16")
	assert.False(t, isIPAllowed(nil, nil, nil))
	assert.True(t, isIPAllowed(net.ParseIP("192.168.4.4"), nil, []*net.IPNet{network}))
	assert.True(t, isIPAllowed(net.ParseIP("::1"), []net.IP{net.ParseIP("::1")}, nil))
	assert.False(t, isIPAllowed(net.ParseIP("8.8.8.8"), []net.IP{net.ParseIP("::1")}, []*net.IPNet{network}))
}
