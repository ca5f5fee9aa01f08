package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

func newClient(t *testing.T, srv *httptest.Server, cfg transport.Config) *transport.Client {
	t.Helper()
	cfg.Carrier = "acme"
	cfg.BaseURL = srv.URL
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	return transport.New(cfg, otelzap.New(zap.NewNop()))
}

func countingBody(body string, calls *int32) pipeline.Request {
	return pipeline.New(body, func(s string) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(s), nil
	})
}

func TestExecute_SendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rs/ship/price", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "application/vnd.cpc.ship.rate-v4+xml", r.Header.Get("Content-Type"))
		assert.Equal(t, "en-CA", r.Header.Get("Accept-Language"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "<mailing-scenario/>", string(body))
		_, _ = w.Write([]byte("<price-quotes/>"))
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{
		Username: "key",
		Password: "secret",
		Headers:  map[string]string{"Accept-Language": "en-CA"},
	})

	out, err := client.Execute(context.Background(), transport.Call{
		Operation: "rates",
		URL:       "/rs/ship/price",
		Headers:   map[string]string{"Content-Type": "application/vnd.cpc.ship.rate-v4+xml"},
		Body:      pipeline.Text("<mailing-scenario/>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "<price-quotes/>", out)
}

func TestExecute_APIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{APIKey: "token-1", APIKeyHeader: "Authorization"})
	_, err := client.Execute(context.Background(), transport.Call{Method: http.MethodGet, URL: "/shipment/1"})
	require.NoError(t, err)
}

func TestExecute_RetriesAndReserializes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var serialized int32
	client := newClient(t, srv, transport.Config{MaxAttempts: 3})
	out, err := client.Execute(context.Background(), transport.Call{URL: "/", Body: countingBody("x", &serialized)})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.EqualValues(t, 3, atomic.LoadInt32(&serialized))
}

func TestExecute_RetriesExhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{MaxAttempts: 2})
	_, err := client.Execute(context.Background(), transport.Call{Operation: "rates", URL: "/"})

	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusTooManyRequests, transportErr.StatusCode)
	assert.True(t, transportErr.Retryable)
	assert.ErrorIs(t, err, shipper.ErrRateLimitExceeded)
	assert.True(t, shipper.IsRetryable(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestExecute_OnceIsNotRepeated(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{MaxAttempts: 3})
	_, err := client.Execute(context.Background(), transport.Call{Operation: "create", URL: "/shipment", Once: true})

	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusGatewayTimeout, transportErr.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestExecute_OnceRetriesRateLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("created"))
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{MaxAttempts: 3})
	out, err := client.Execute(context.Background(), transport.Call{Operation: "create", URL: "/shipment", Once: true})

	require.NoError(t, err)
	assert.Equal(t, "created", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestExecute_AuthFailureIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{MaxAttempts: 3})
	_, err := client.Execute(context.Background(), transport.Call{URL: "/"})

	assert.ErrorIs(t, err, shipper.ErrAuthenticationFailed)
	assert.False(t, shipper.IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestExecute_ErrorBodyReturned(t *testing.T) {
	fault := `<soap:Envelope><soap:Body><soap:Fault><faultstring>bad</faultstring></soap:Fault></soap:Body></soap:Envelope>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fault))
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{})
	out, err := client.Execute(context.Background(), transport.Call{URL: "/"})
	require.NoError(t, err)
	assert.Equal(t, fault, out)
}

func TestExecute_EmptyErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{})
	_, err := client.Execute(context.Background(), transport.Call{URL: "/"})

	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
	assert.False(t, transportErr.Retryable)
}

func TestExecute_SerializeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	}))
	defer srv.Close()

	bad := pipeline.New(0, func(int) ([]byte, error) { return nil, errors.New("boom") })
	client := newClient(t, srv, transport.Config{})
	_, err := client.Execute(context.Background(), transport.Call{URL: "/", Body: bad})
	assert.ErrorIs(t, err, transport.ErrBadRequest)
}

func TestExecute_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := newClient(t, srv, transport.Config{Timeout: 20 * time.Millisecond, MaxAttempts: 1})
	_, err := client.Execute(context.Background(), transport.Call{URL: "/"})

	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.Timeout)
}

func TestExecutor_RoutesJobs(t *testing.T) {
	var calls []transport.Call
	doer := transport.Func(func(_ context.Context, call transport.Call) (string, error) {
		calls = append(calls, call)
		return "resp-" + call.Operation, nil
	})

	exec := transport.Executor(doer, func(job pipeline.Job) (transport.Call, error) {
		if job.ID == "label" {
			return transport.Call{Method: http.MethodGet, URL: pipeline.ContextOf(job.Data, "href")}, nil
		}
		return transport.Call{URL: "/shipment"}, nil
	})

	p := pipeline.NewPipeline().
		Require("create", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("<shipment/>")} }).
		Then("label", func(prev string) pipeline.Job {
			return pipeline.Job{Data: pipeline.Text("").WithContext("href", "https://x.test/"+prev)}
		})

	res, err := p.Run(context.Background(), exec)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "create", calls[0].Operation)
	assert.Equal(t, "https://x.test/resp-create", calls[1].URL)
	assert.Equal(t, "resp-label", res.Response("label"))
}

func TestExecutor_RouteError(t *testing.T) {
	exec := transport.Executor(transport.Func(func(context.Context, transport.Call) (string, error) {
		t.Fatal("doer must not be called")
		return "", nil
	}), func(pipeline.Job) (transport.Call, error) {
		return transport.Call{}, errors.New("no route")
	})

	_, err := pipeline.Single("x", pipeline.Text("")).Run(context.Background(), exec)
	assert.EqualError(t, err, `job "x": no route`)
}

type jobRecorder struct {
	carriers   []string
	operations []string
	errs       []error
}

func (r *jobRecorder) ObserveJob(carrier, operation string, _ time.Duration, err error) {
	r.carriers = append(r.carriers, carrier)
	r.operations = append(r.operations, operation)
	r.errs = append(r.errs, err)
}

func TestObserved(t *testing.T) {
	failure := errors.New("boom")
	doer := transport.Func(func(ctx context.Context, call transport.Call) (string, error) {
		if call.Operation == "void" {
			return "", failure
		}
		return "ok", nil
	})
	rec := &jobRecorder{}
	observed := transport.Observed("acme", doer, rec)

	body, err := observed.Execute(context.Background(), transport.Call{Operation: "rate"})
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	_, err = observed.Execute(context.Background(), transport.Call{Operation: "void"})
	assert.ErrorIs(t, err, failure)

	assert.Equal(t, []string{"acme", "acme"}, rec.carriers)
	assert.Equal(t, []string{"rate", "void"}, rec.operations)
	assert.NoError(t, rec.errs[0])
	assert.ErrorIs(t, rec.errs[1], failure)
}

func TestObserved_NilObserver(t *testing.T) {
	doer := transport.Func(func(ctx context.Context, call transport.Call) (string, error) { return "ok", nil })
	assert.NotNil(t, transport.Observed("acme", doer, nil))
}
