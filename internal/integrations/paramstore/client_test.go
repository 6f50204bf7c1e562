package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves pages in order and records the inputs it saw.
type fakeAPI struct {
	pages  []*ssm.GetParametersByPathOutput
	err    error
	inputs []*ssm.GetParametersByPathInput
}

func (f *fakeAPI) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[len(f.inputs)-1]
	return page, nil
}

func param(name, value string) types.Parameter {
	return types.Parameter{Name: aws.String(name), Value: aws.String(value)}
}

func TestLoadDefaults_HappyPath(t *testing.T) {
	api := &fakeAPI{pages: []*ssm.GetParametersByPathOutput{{
		Parameters: []types.Parameter{
			param("/team/storygen/model", "mistral"),
			param("/team/storygen/ollama-url", "http://gpu-box:11434/api/generate"),
		},
	}}}
	client, err := New(api)
	require.NoError(t, err)

	got, err := client.LoadDefaults(context.Background(), "/team/storygen/")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"model":      "mistral",
		"ollama-url": "http://gpu-box:11434/api/generate",
	}, got)

	require.Len(t, api.inputs, 1)
	require.Equal(t, "/team/storygen", aws.ToString(api.inputs[0].Path))
	require.True(t, aws.ToBool(api.inputs[0].Recursive))
	require.True(t, aws.ToBool(api.inputs[0].WithDecryption))
}

func TestLoadDefaults_FollowsPagination(t *testing.T) {
	api := &fakeAPI{pages: []*ssm.GetParametersByPathOutput{
		{Parameters: []types.Parameter{param("/p/model", "m")}, NextToken: aws.String("t1")},
		{Parameters: []types.Parameter{param("/p/timeout", "30s")}},
	}}
	client, err := New(api)
	require.NoError(t, err)

	got, err := client.LoadDefaults(context.Background(), "/p")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"model": "m", "timeout": "30s"}, got)
	require.Len(t, api.inputs, 2)
	require.Equal(t, "t1", aws.ToString(api.inputs[1].NextToken))
}

func TestLoadDefaults_SkipsIncompleteParameters(t *testing.T) {
	api := &fakeAPI{pages: []*ssm.GetParametersByPathOutput{{
		Parameters: []types.Parameter{{Name: aws.String("/p/model")}, {Value: aws.String("v")}},
	}}}
	client, err := New(api)
	require.NoError(t, err)

	got, err := client.LoadDefaults(context.Background(), "/p")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoadDefaults_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{err: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.LoadDefaults(context.Background(), "/p")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestLoadDefaults_EmptyPrefix(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.LoadDefaults(context.Background(), " / ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestLoadDefaults_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).LoadDefaults(context.Background(), "/p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}
