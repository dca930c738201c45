package adapters

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func newResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
		desc    string
	}{
		// Valid cases
		{"http://test.com", false, "basic HTTP URL"},
		{"https://test.com", false, "basic HTTPS URL"},
		{"  http://test.com   ", false, "URL with whitespace"},
		{"http://test.com/path?arg=1&arg2=2", false, "URL with path and query"},
		{"http://test.com:8080", false, "URL with port"},
		{"http://localhost:8080/test", false, "localhost with port"},
		{"http://123.123.123.123/test", false, "IP address"},
		{"http://mylocalnet/test", false, "single label hostname"},

		// Invalid cases
		{"", true, "empty string"},
		{" ", true, "whitespace only"},
		{"_", true, "invalid character"},
		{"ftp://test.com", true, "different scheme rejected"},
		{"test.com", true, "missing scheme"},
		{"http://user@test.com/path", true, "URL with user info"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			u, err := validateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, u)
			}
		})
	}
}

func TestHTTPStore_Read(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			return req.Method == http.MethodGet && req.URL.String() == "http://test.com/fs.txt"
		})).Return(newResponse(http.StatusOK, "D /a\n"), nil).Once()

		data, err := NewHTTPStore(client).Read("http://test.com/fs.txt")

		require.NoError(t, err)
		assert.Equal(t, "D /a\n", string(data))
		client.AssertExpectations(t)
	})

	t.Run("with custom headers", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			return req.Header.Get("Authorization") == "Bearer t"
		})).Return(newResponse(http.StatusOK, ""), nil).Once()

		store := NewHTTPStore(client)
		store.Headers = map[string]string{"Authorization": "Bearer t"}
		_, err := store.Read("https://test.com/fs.txt")

		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.Anything).Return(newResponse(http.StatusNotFound, ""), nil)

		_, err := NewHTTPStore(client).Read("http://test.com/missing")

		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		client.On("Do", mock.Anything).Return(newResponse(http.StatusInternalServerError, ""), nil)

		_, err := NewHTTPStore(client).Read("http://test.com/fs.txt")

		require.Error(t, err)
		assert.NotErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), http.StatusText(http.StatusInternalServerError))
	})

	t.Run("network error", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		netErr := errors.New("connection refused")
		client.On("Do", mock.Anything).Return(nil, netErr)

		_, err := NewHTTPStore(client).Read("http://test.com/fs.txt")

		assert.ErrorIs(t, err, netErr)
	})

	t.Run("invalid URL never sends", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}

		_, err := NewHTTPStore(client).Read("ftp://test.com/fs.txt")

		require.Error(t, err)
		client.AssertNotCalled(t, "Do", mock.Anything)
	})
}

func TestHTTPStore_ReadFromServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fs.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "F /f 1\nremote\n")
	}))
	t.Cleanup(srv.Close)

	store := NewHTTPStore(srv.Client())
	store.Timeout = 5 * time.Second

	data, err := store.Read(srv.URL + "/fs.txt")
	require.NoError(t, err)
	assert.Equal(t, "F /f 1\nremote\n", string(data))

	_, err = store.Read(srv.URL + "/other.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestHTTPStore_Write(t *testing.T) {
	t.Parallel()

	t.Run("returns read-only error", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		err := NewHTTPStore(client).Write("http://test.com/fs.txt", []byte("D /a\n"))

		assert.ErrorIs(t, err, ErrReadOnly)
		client.AssertNotCalled(t, "Do", mock.Anything)
	})
}
