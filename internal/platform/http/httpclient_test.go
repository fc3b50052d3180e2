package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient(7 * time.Second)
	assert.Equal(t, 7*time.Second, c.Timeout)
	assert.Nil(t, c.Jar)
	_, ok := c.Transport.(*http.Transport)
	assert.True(t, ok, "expected a bare *http.Transport without options")
}

func TestNewHTTPClient_UserAgent(t *testing.T) {
	t.Parallel()

	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, WithUserAgent("divly/1.0"))

	res, err := c.Get(srv.URL)
	require.NoError(t, err)
	_ = res.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom")
	res, err = c.Do(req)
	require.NoError(t, err)
	_ = res.Body.Close()

	assert.Equal(t, []string{"divly/1.0", "custom"}, got)
}

func TestNewHTTPClient_CookieJar(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, WithCookieJar())
	require.NotNil(t, c.Jar)

	res, err := c.Get(srv.URL + "/set")
	require.NoError(t, err)
	_ = res.Body.Close()

	res, err = c.Get(srv.URL + "/check")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
