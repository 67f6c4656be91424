package wsrpc

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenConnectionParamsRepo_NoGetter(t *testing.T) {
	_, err := OpenConnectionParamsRepo{}.Get(context.Background())
	assert.Error(t, err)
}

func TestOpenConnectionParamsRepo_GetterError(t *testing.T) {
	var buf syncBuffer
	boom := errors.New("vault unreachable")
	repo := NewOpenConnectionParamsRepo(newTestLogger(&buf), func(context.Context) (OpenConnectionParams, error) {
		return OpenConnectionParams{}, boom
	})

	_, err := repo.Get(context.Background())
	assert.Equal(t, boom, err)
	assert.Contains(t, buf.String(), "cannot fetch open connection params: vault unreachable")
}

func TestStaticOpenConnectionParams_ClonesHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Authorization", "Bearer a")
	repo := NewOpenConnectionParamsRepo(NopLogger(), StaticOpenConnectionParams(testURL, header))

	p, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testURL, p.URL)
	assert.Equal(t, "Bearer a", p.Header.Get("Authorization"))

	p.Header.Set("Authorization", "Bearer b")
	again, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer a", again.Header.Get("Authorization"))
}

func TestConnector_RefreshesParamsOnEveryConnect(t *testing.T) {
	ft := &fakeTransport{}
	var seen []string
	calls := 0
	repo := NewOpenConnectionParamsRepo(NopLogger(), func(context.Context) (OpenConnectionParams, error) {
		calls++
		h := http.Header{}
		h.Set("X-Attempt", strconv.Itoa(calls))
		return OpenConnectionParams{URL: testURL, Header: h}, nil
	})
	ft.DialFunc = func(ctx context.Context, p OpenConnectionParams) (TransportConn, error) {
		seen = append(seen, p.Header.Get("X-Attempt"))
		return newPipeConn(), nil
	}

	c := NewConnector(repo, WithTransport(ft), WithLogger(NopLogger()))
	for i := 0; i < 2; i++ {
		require.NoError(t, c.Connect(contextWithTimeout(t)))
		require.NoError(t, c.Disconnect(contextWithTimeout(t)))
	}
	assert.Equal(t, []string{"1", "2"}, seen)
}
