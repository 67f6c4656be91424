package wsrpc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	// OpenConnectionParamsGetter is called on every Connect, so short lived
	// credentials in the URL or headers can be refreshed between connections.
	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	if r.getter == nil {
		return params, errors.New("no connection params getter configured")
	}
	params, err = r.getter(ctx)
	if err != nil && r.logger != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// StaticOpenConnectionParams always dials u with header.
func StaticOpenConnectionParams(u url.URL, header http.Header) OpenConnectionParamsGetter {
	return func(context.Context) (OpenConnectionParams, error) {
		return OpenConnectionParams{URL: u, Header: header.Clone()}, nil
	}
}
