package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL + "/")
	c.SetHeader("X-Client", "boxoffice")
	c.SetHeaderProvider(BearerToken("abc"))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/api/carts", &out))
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "boxoffice", got.Get("X-Client"))
}

func TestHeaderProviderIsPerRequest(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	token := ""
	c := NewBaseClient(srv.URL)
	c.SetHeaderProvider(HeaderFunc(func(context.Context) map[string]string {
		if token == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}))

	ctx := context.Background()
	_, err := c.Get(ctx, "/a")
	require.NoError(t, err)
	token = "t1"
	_, err = c.Get(ctx, "/a")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer t1"}, auth)
}

func TestWithHeaderProviderDoesNotMutateOriginal(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	base := NewBaseClient(srv.URL)
	scoped := base.WithHeaderProvider(BearerToken("user-1"))

	ctx := context.Background()
	_, err := scoped.Get(ctx, "/")
	require.NoError(t, err)
	_, err = base.Get(ctx, "/")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer user-1", ""}, auth)
}

func TestAPIErrorCarriesFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Validation failed","errors":[{"path":"receiverPhone","message":"invalid"}]}`))
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL)
	err := c.PostJSON(context.Background(), "/api/carts/prepare-checkout", map[string]string{"a": "b"}, nil)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Validation failed", apiErr.Message)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "receiverPhone", apiErr.Errors[0].Path)
	assert.Contains(t, apiErr.Error(), "400")
}

func TestUnauthorizedHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var hits []string
	c := NewBaseClient(srv.URL)
	c.SetUnauthorizedHandler(func(_ context.Context, endpoint string) {
		hits = append(hits, endpoint)
	})

	_, err := c.Get(context.Background(), "/api/carts")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.Unauthorized())
	assert.Equal(t, []string{"/api/carts"}, hits)
}

func TestPostJSONSendsBody(t *testing.T) {
	var body string
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		contentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	c := NewBaseClient(srv.URL)
	require.NoError(t, c.PostJSON(context.Background(), "/x", map[string]int{"quantity": 2}, nil))
	assert.JSONEq(t, `{"quantity":2}`, body)
	assert.Equal(t, "application/json", contentType)
}

func TestMakeRequestHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBaseClient(srv.URL).Get(ctx, "/")
	assert.True(t, errors.Is(err, context.Canceled))
}
