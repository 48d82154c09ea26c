package aws_test

import (
	"context"
	"errors"
	"testing"
	"time"

	aws_pkg "github.com/AmentiAI/solmaker-sub001/pkg/aws"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: sdkaws.String("msg-1")}, nil
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestSNSClient_PublishWithAttributes(t *testing.T) {
	api := &fakeSNS{}
	client := aws_pkg.NewSNSClientWithAPI(api, nil)

	err := client.Publish(context.Background(), "arn:aws:sns:us-east-1:000000000000:mints", []byte(`{"a":1}`),
		map[string]string{"event_type": "ordinal_minted"})
	require.NoError(t, err)

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:mints", sdkaws.ToString(in.TopicArn))
	assert.Equal(t, `{"a":1}`, sdkaws.ToString(in.Message))
	attr := in.MessageAttributes["event_type"]
	assert.Equal(t, "String", sdkaws.ToString(attr.DataType))
	assert.Equal(t, "ordinal_minted", sdkaws.ToString(attr.StringValue))
}

func TestSNSClient_Errors(t *testing.T) {
	api := &fakeSNS{err: errors.New("throttled")}
	client := aws_pkg.NewSNSClientWithAPI(api, nil)

	assert.Error(t, client.Publish(context.Background(), "", []byte("x"), nil))
	assert.Empty(t, api.inputs, "empty topic is refused locally")

	err := client.Publish(context.Background(), "arn", []byte("x"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMetricsClient_RecordCount(t *testing.T) {
	api := &fakeCloudWatch{}
	m := aws_pkg.NewMetricsClientWithAPI(api, "")

	require.NoError(t, m.RecordCount(context.Background(), "MintsConfirmed",
		map[string]string{"Service": "launchpad", "CollectionId": "col-1"}))

	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "Launchpad", sdkaws.ToString(in.Namespace))
	require.Len(t, in.MetricData, 1)
	d := in.MetricData[0]
	assert.Equal(t, "MintsConfirmed", sdkaws.ToString(d.MetricName))
	assert.Equal(t, 1.0, sdkaws.ToFloat64(d.Value))
	assert.Equal(t, cwtypes.StandardUnitCount, d.Unit)
	require.Len(t, d.Dimensions, 2)
	assert.Equal(t, "CollectionId", sdkaws.ToString(d.Dimensions[0].Name), "dimensions sorted by name")
}

func TestMetricsClient_RecordLatency(t *testing.T) {
	api := &fakeCloudWatch{err: errors.New("denied")}
	m := aws_pkg.NewMetricsClientWithAPI(api, "Custom")

	err := m.RecordLatency(context.Background(), "HTTPLatency", 1500*time.Millisecond, nil)
	require.Error(t, err)
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "Custom", sdkaws.ToString(api.inputs[0].Namespace))
	assert.Equal(t, 1500.0, sdkaws.ToFloat64(api.inputs[0].MetricData[0].Value))
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, api.inputs[0].MetricData[0].Unit)
}
