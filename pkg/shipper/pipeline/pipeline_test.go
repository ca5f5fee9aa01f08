package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

type createRequest struct {
	Service string `json:"service"`
}

func jsonRequest[T any](v T) pipeline.Serializable[T] {
	return pipeline.New(v, func(v T) ([]byte, error) { return json.Marshal(v) })
}

// echoExecutor returns canned responses per job id and records the bodies.
type echoExecutor struct {
	responses map[string]string
	errs      map[string]error
	bodies    map[string]string
	order     []string
}

func newEchoExecutor(responses map[string]string) *echoExecutor {
	return &echoExecutor{responses: responses, errs: map[string]error{}, bodies: map[string]string{}}
}

func (e *echoExecutor) Execute(_ context.Context, job pipeline.Job) (string, error) {
	e.order = append(e.order, job.ID)
	body, err := job.Data.Serialize()
	if err != nil {
		return "", err
	}
	e.bodies[job.ID] = string(body)
	if err := e.errs[job.ID]; err != nil {
		return "", err
	}
	return e.responses[job.ID], nil
}

func TestSerializable_DefersSerialization(t *testing.T) {
	calls := 0
	req := pipeline.New(createRequest{Service: "ground"}, func(r createRequest) ([]byte, error) {
		calls++
		return json.Marshal(r)
	})
	assert.Zero(t, calls)
	assert.Equal(t, "ground", req.Value().Service)

	body, err := req.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, `{"service":"ground"}`, string(body))

	_, _ = req.Serialize()
	assert.Equal(t, 2, calls)
}

func TestSerializable_Context(t *testing.T) {
	base := pipeline.Text("")
	withHref := base.WithContext("href", "https://example.test/label/1")

	assert.Empty(t, base.Context("href"))
	assert.Equal(t, "https://example.test/label/1", withHref.Context("href"))
	assert.Equal(t, "https://example.test/label/1", pipeline.ContextOf(withHref, "href"))

	body, err := withHref.Serialize()
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestSerializable_NoSerializer(t *testing.T) {
	var req pipeline.Serializable[int]
	_, err := req.Serialize()
	assert.ErrorIs(t, err, pipeline.ErrNoSerializer)
}

func TestPipeline_CreateThenDocument(t *testing.T) {
	exec := newEchoExecutor(map[string]string{
		"create":   `{"pin":"329014521622"}`,
		"document": `{"label":"JVBERi0x"}`,
	})

	p := pipeline.NewPipeline().
		Require("create", func(prev string) pipeline.Job {
			assert.Empty(t, prev)
			return pipeline.Job{Data: jsonRequest(createRequest{Service: "ground"})}
		}).
		Then("document", func(prev string) pipeline.Job {
			return pipeline.Job{Data: pipeline.Text(prev)}
		})

	res, err := p.Run(context.Background(), exec.Execute)
	require.NoError(t, err)

	assert.Equal(t, []string{"create", "document"}, exec.order)
	assert.Equal(t, `{"pin":"329014521622"}`, exec.bodies["document"])
	assert.Equal(t, pipeline.Executed, res.State("create"))
	assert.Equal(t, pipeline.Executed, res.State("document"))
	assert.Equal(t, `{"label":"JVBERi0x"}`, res.Response("document"))
	assert.Len(t, res.Responses(), 2)
}

func TestPipeline_DocumentSkippedWhenCreateFailed(t *testing.T) {
	createResponse := `<errors><error code="1100541">Invalid postal code</error></errors>`
	exec := newEchoExecutor(map[string]string{"create": createResponse})

	var seen string
	p := pipeline.NewPipeline().
		Require("create", func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.Text("<create/>")}
		}).
		Then("document", func(prev string) pipeline.Job {
			seen = prev
			if strings.Contains(prev, "<errors>") {
				return pipeline.Job{Fallback: ""}
			}
			return pipeline.Job{Data: pipeline.Text("<document/>")}
		})

	res, err := p.Run(context.Background(), exec.Execute)
	require.NoError(t, err)

	assert.Equal(t, createResponse, seen)
	assert.Equal(t, []string{"create"}, exec.order)
	assert.Equal(t, pipeline.Skipped, res.State("document"))
	assert.Equal(t, "", res.Response("document"))

	responses := res.Responses()
	require.Contains(t, responses, "document")
	assert.Equal(t, createResponse, responses["create"])
}

func TestPipeline_FallbackFeedsNextStage(t *testing.T) {
	exec := newEchoExecutor(map[string]string{"third": "ok"})

	var third string
	p := pipeline.NewPipeline().
		Then("first", func(string) pipeline.Job { return pipeline.Job{Fallback: "cached-token"} }).
		Then("second", func(prev string) pipeline.Job { return pipeline.Job{Fallback: prev + "+"} }).
		Then("third", func(prev string) pipeline.Job {
			third = prev
			return pipeline.Job{Data: pipeline.Text(prev)}
		})

	res, err := p.Run(context.Background(), exec.Execute)
	require.NoError(t, err)
	assert.Equal(t, "cached-token+", third)
	assert.Equal(t, "cached-token", res.Response("first"))
	assert.Equal(t, pipeline.Executed, res.State("third"))
}

func TestPipeline_RequiredStageWithoutData(t *testing.T) {
	exec := newEchoExecutor(nil)

	p := pipeline.NewPipeline().
		Require("create", func(string) pipeline.Job { return pipeline.Job{} }).
		Then("document", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("x")} })

	res, err := p.Run(context.Background(), exec.Execute)
	require.ErrorIs(t, err, pipeline.ErrRequiredJobSkipped)
	assert.Equal(t, pipeline.Failed, res.State("create"))
	assert.Equal(t, pipeline.Pending, res.State("document"))
	assert.Empty(t, exec.order)
}

func TestPipeline_ExecutorErrorAbandonsRemainingStages(t *testing.T) {
	exec := newEchoExecutor(map[string]string{"submit": `{"request_id":"r-1"}`})
	exec.errs["poll"] = &shipper.TransportError{Carrier: "freightcom", StatusCode: 503, Retryable: true}

	p := pipeline.NewPipeline().
		Require("submit", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("{}")} }).
		Require("poll", func(prev string) pipeline.Job { return pipeline.Job{Data: pipeline.Text(prev)} }).
		Then("select", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("{}")} })

	res, err := p.Run(context.Background(), exec.Execute)

	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 503, transportErr.StatusCode)

	outcomes := res.Outcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, pipeline.Executed, outcomes[0].State)
	assert.Equal(t, pipeline.Failed, outcomes[1].State)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, pipeline.Pending, outcomes[2].State)
	assert.Equal(t, map[string]string{"submit": `{"request_id":"r-1"}`}, res.Responses())
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := func(context.Context, pipeline.Job) (string, error) {
		cancel()
		return "created", nil
	}

	p := pipeline.NewPipeline().
		Require("create", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("x")} }).
		Then("document", func(string) pipeline.Job { return pipeline.Job{Data: pipeline.Text("y")} })

	res, err := p.Run(ctx, exec)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pipeline.Executed, res.State("create"))
	assert.Equal(t, pipeline.Pending, res.State("document"))
}

func TestPipeline_DuplicateStage(t *testing.T) {
	p := pipeline.NewPipeline().
		Then("a", func(string) pipeline.Job { return pipeline.Job{} }).
		Then("a", func(string) pipeline.Job { return pipeline.Job{} })

	_, err := p.Run(context.Background(), newEchoExecutor(nil).Execute)
	assert.ErrorIs(t, err, pipeline.ErrDuplicateStage)
}

func TestSingle(t *testing.T) {
	exec := newEchoExecutor(map[string]string{"rates": "<rates/>"})

	p := pipeline.Single("rates", jsonRequest(createRequest{Service: "express"}))
	assert.Equal(t, []string{"rates"}, p.Stages())

	res, err := p.Run(context.Background(), exec.Execute)
	require.NoError(t, err)
	assert.Equal(t, "<rates/>", res.Response("rates"))
	assert.JSONEq(t, `{"service":"express"}`, exec.bodies["rates"])
}

func TestResult_UnknownID(t *testing.T) {
	res, err := pipeline.Single("x", pipeline.Text("")).Run(context.Background(), newEchoExecutor(nil).Execute)
	require.NoError(t, err)

	_, ok := res.Outcome("missing")
	assert.False(t, ok)
	assert.Equal(t, pipeline.Pending, res.State("missing"))
	assert.Equal(t, "executed", res.State("x").String())
}
