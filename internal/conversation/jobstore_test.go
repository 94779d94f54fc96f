package conversation

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	putInput    *dynamodb.PutItemInput
	updateInput *dynamodb.UpdateItemInput
	getOutput   *dynamodb.GetItemOutput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInput = in
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInput = in
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOutput, nil
}

func TestJobStorePutPending(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewJobStore(fake, "engine-jobs", nil)

	job := &JobRecord{JobID: "job-1", Queue: QueueAIProcess, LeadID: "lead-1"}
	require.NoError(t, store.PutPending(context.Background(), job))

	assert.Equal(t, JobStatusPending, job.Status)
	assert.NotEmpty(t, job.CreatedAt)
	assert.NotZero(t, job.ExpiresAt, "TTL must be stamped")

	require.NotNil(t, fake.putInput)
	assert.Equal(t, "engine-jobs", *fake.putInput.TableName)
	assert.Equal(t, "attribute_not_exists(jobId)", *fake.putInput.ConditionExpression)

	var stored JobRecord
	require.NoError(t, attributevalue.UnmarshalMap(fake.putInput.Item, &stored))
	assert.Equal(t, "job-1", stored.JobID)
	assert.Equal(t, QueueAIProcess, stored.Queue)
}

func TestJobStoreGetJob(t *testing.T) {
	item, err := attributevalue.MarshalMap(&JobRecord{
		JobID:  "job-1",
		Queue:  QueueReminders,
		LeadID: "lead-1",
		Status: JobStatusCompleted,
	})
	require.NoError(t, err)
	fake := &fakeDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}}
	store := NewJobStore(fake, "engine-jobs", nil)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, "lead-1", job.LeadID)
}

func TestJobStoreGetJobNotFound(t *testing.T) {
	store := NewJobStore(&fakeDynamo{}, "engine-jobs", nil)

	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStoreMarkFailed(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewJobStore(fake, "engine-jobs", nil)

	require.NoError(t, store.MarkFailed(context.Background(), "job-1", "lead vanished"))

	require.NotNil(t, fake.updateInput)
	assert.Contains(t, *fake.updateInput.UpdateExpression, "errorMessage")

	status, ok := fake.updateInput.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, string(JobStatusFailed), status.Value)
}
