package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/matryer/is"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/api"
	"github.com/domino14/moveoracle/position"
)

type fakeInvoker struct {
	got  api.Request
	out  *lambda.InvokeOutput
	err  error
	name string
}

func (f *fakeInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.name = aws.ToString(in.FunctionName)
	if err := json.Unmarshal(in.Payload, &f.got); err != nil {
		return nil, err
	}
	return f.out, f.err
}

func TestLambdaAdapter(t *testing.T) {
	is := is.New(t)
	payload, _ := json.Marshal(api.Response{Result: &analysis.Result{
		BestMove:           "e2e4",
		Evaluation:         analysis.Centipawns(20),
		EngineUsed:         "stockfish",
		DepthReached:       12,
		PrincipalVariation: []string{"e2e4"},
	}})
	inv := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: payload}}
	a := NewLambdaAdapter(inv, "moveoracle-prod", RemoteOptions{})

	res, err := a.Analyze(context.Background(), startRequest())
	is.NoErr(err)
	is.Equal(inv.name, "moveoracle-prod")
	is.Equal(inv.got.Position, position.StartFEN)
	is.Equal(inv.got.Depth, 10)
	is.Equal(res.BestMove, "e2e4")
	is.Equal(res.EngineUsed, "lambda/stockfish")
}

func TestLambdaFunctionError(t *testing.T) {
	is := is.New(t)
	inv := &fakeInvoker{out: &lambda.InvokeOutput{
		FunctionError: aws.String("Unhandled"),
		Payload:       []byte(`{"errorMessage":"boom"}`),
	}}
	a := NewLambdaAdapter(inv, "fn", RemoteOptions{})
	_, err := a.Analyze(context.Background(), startRequest())
	is.True(errors.Is(err, analysis.ErrUnavailable))
}

func TestLambdaErrorResponse(t *testing.T) {
	is := is.New(t)
	payload, _ := json.Marshal(api.Response{Code: api.CodeInternal, Error: "no engine"})
	inv := &fakeInvoker{out: &lambda.InvokeOutput{Payload: payload}}
	a := NewLambdaAdapter(inv, "fn", RemoteOptions{})
	_, err := a.Analyze(context.Background(), startRequest())
	is.True(errors.Is(err, analysis.ErrUnavailable))
}
