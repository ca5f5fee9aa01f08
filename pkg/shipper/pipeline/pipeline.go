package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const instrumentation = "github.com/tournevent/carrierbridge/pkg/shipper/pipeline"

// ErrRequiredJobSkipped is returned when a required stage produced no data.
var ErrRequiredJobSkipped = errors.New("pipeline: required job produced no data")

// ErrDuplicateStage is returned when two stages share an id.
var ErrDuplicateStage = errors.New("pipeline: duplicate stage id")

// Job is one physical call. A nil Data means "nothing to send"; the stage
// is then skipped and Fallback stands in for its response.
type Job struct {
	ID       string
	Data     Request
	Fallback string
}

// Producer builds a job from the raw response of the previous stage. The
// first stage receives "".
type Producer func(previous string) Job

// Executor performs a job and returns the raw response.
type Executor func(ctx context.Context, job Job) (string, error)

// Stage declares one step of a Pipeline.
type Stage struct {
	ID       string
	Produce  Producer
	Required bool
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline from stages.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), stages...)}
}

// Single wraps one request as a one-stage pipeline.
func Single(id string, req Request) *Pipeline {
	return NewPipeline().Require(id, func(string) Job { return Job{Data: req} })
}

// Then appends an optional stage.
func (p *Pipeline) Then(id string, produce Producer) *Pipeline {
	p.stages = append(p.stages, Stage{ID: id, Produce: produce})
	return p
}

// Require appends a stage that fails the run when it produces no data.
func (p *Pipeline) Require(id string, produce Producer) *Pipeline {
	p.stages = append(p.stages, Stage{ID: id, Produce: produce, Required: true})
	return p
}

// Stages returns the stage ids in order.
func (p *Pipeline) Stages() []string {
	ids := make([]string, len(p.stages))
	for i, s := range p.stages {
		ids[i] = s.ID
	}
	return ids
}

// Run executes the stages in order. On an executor error, a skipped
// required stage or a cancelled context, the remaining stages stay Pending
// and the partial result is returned together with the error.
func (p *Pipeline) Run(ctx context.Context, exec Executor) (*Result, error) {
	res := newResult(p.stages)
	if err := p.validate(); err != nil {
		return res, err
	}

	tracer := otel.Tracer(instrumentation)
	previous := ""
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("pipeline aborted before %q: %w", stage.ID, err)
		}

		job := stage.Produce(previous)
		job.ID = stage.ID

		if job.Data == nil {
			if stage.Required {
				err := fmt.Errorf("job %q: %w", stage.ID, ErrRequiredJobSkipped)
				res.set(i, Failed, "", err)
				return res, err
			}
			res.set(i, Skipped, job.Fallback, nil)
			previous = job.Fallback
			continue
		}

		res.set(i, DataReady, "", nil)
		jctx, span := tracer.Start(ctx, "pipeline.job")
		span.SetAttributes(attribute.String("job.id", stage.ID), attribute.Int("job.index", i))

		response, err := exec(jctx, job)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			res.set(i, Failed, response, err)
			return res, fmt.Errorf("job %q: %w", stage.ID, err)
		}
		span.End()

		res.set(i, Executed, response, nil)
		previous = response
	}
	return res, nil
}

func (p *Pipeline) validate() error {
	seen := make(map[string]bool, len(p.stages))
	for _, s := range p.stages {
		if seen[s.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateStage, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
