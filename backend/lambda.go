package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/api"
)

// Invoker is the part of the Lambda client we use.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaAdapter asks a moveoracle deployed as an AWS Lambda function.
type LambdaAdapter struct {
	function string
	client   Invoker
	timeout  time.Duration
}

func NewLambdaAdapter(client Invoker, function string, opts RemoteOptions) *LambdaAdapter {
	return &LambdaAdapter{
		function: function,
		client:   client,
		timeout:  opts.withDefaults("").Timeout,
	}
}

func (a *LambdaAdapter) Name() string { return NameLambda }
func (a *LambdaAdapter) Kind() Kind   { return Remote }

func (a *LambdaAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := json.Marshal(api.Request{
		Position:          req.Position.FEN(),
		Depth:             req.Depth,
		TimeBudgetSeconds: req.TimeBudget.Seconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	out, err := a.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(a.function),
		Payload:      payload,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrBackendTimeout, NameLambda)
		}
		return nil, fmt.Errorf("failed to invoke %s: %w", a.function, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: %s: %s: %s", analysis.ErrUnavailable, NameLambda,
			aws.ToString(out.FunctionError), string(out.Payload))
	}
	var resp api.Response
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != "" || resp.Result == nil {
		return nil, fmt.Errorf("%w: %s: %s", analysis.ErrUnavailable, NameLambda, resp.Error)
	}
	res := *resp.Result
	res.EngineUsed = NameLambda + "/" + res.EngineUsed
	return &res, nil
}
