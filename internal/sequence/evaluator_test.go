package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/models"
)

type fakeMessages struct {
	responded bool
	last      *models.Message
	err       error
}

func (f *fakeMessages) HasInboundSince(ctx context.Context, waID string, since time.Time) (bool, error) {
	return f.responded, f.err
}

func (f *fakeMessages) LastInbound(ctx context.Context, waID string) (*models.Message, error) {
	return f.last, f.err
}

func uintPtr(v uint) *uint { return &v }

func threeSteps() []models.SequenceStep {
	return []models.SequenceStep{
		{ID: 1, Position: 1, Condition: ConditionNone},
		{ID: 2, Position: 2, Condition: ConditionNone},
		{ID: 3, Position: 3, Condition: ConditionNone},
	}
}

func TestEvaluateLinearOrderByDefault(t *testing.T) {
	steps := threeSteps()
	e := NewEvaluator(&fakeMessages{})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.True(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(2), out.Next.ID)
	assert.False(t, out.Terminal)
}

func TestEvaluateBranchTargetOverridesLinearOrder(t *testing.T) {
	steps := threeSteps()
	steps[0].Condition = ConditionIfResponded
	steps[0].NextOnTrue = uintPtr(3)
	e := NewEvaluator(&fakeMessages{responded: true})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.True(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(3), out.Next.ID)
}

func TestEvaluateIfRespondedFallsThroughLinearlyWithoutReply(t *testing.T) {
	steps := threeSteps()
	steps[0].Condition = ConditionIfResponded
	steps[0].NextOnTrue = uintPtr(3)
	e := NewEvaluator(&fakeMessages{responded: false})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.False(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(2), out.Next.ID)
}

func TestEvaluateDanglingBranchTargetTerminates(t *testing.T) {
	steps := threeSteps()
	steps[0].NextOnTrue = uintPtr(99)
	e := NewEvaluator(&fakeMessages{})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.Nil(t, out.Next)
	assert.True(t, out.Terminal)
}

func TestEvaluateEndOfListTerminates(t *testing.T) {
	steps := threeSteps()
	e := NewEvaluator(&fakeMessages{})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[2])
	require.NoError(t, err)
	assert.Nil(t, out.Next)
	assert.True(t, out.Terminal)
}

func TestEvaluateKeywordMatchIgnoresCaseAndDiacritics(t *testing.T) {
	steps := []models.SequenceStep{
		{ID: 1, Position: 1, Condition: ConditionIfMessageContains, Keywords: `["Sí","me interesa"]`, NextOnTrue: uintPtr(2)},
		{ID: 2, Position: 2},
		{ID: 3, Position: 3},
	}
	e := NewEvaluator(&fakeMessages{last: &models.Message{Content: "si claro, cuando?"}})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.True(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(2), out.Next.ID)
}

func TestEvaluateKeywordNoMatchTakesFalseBranch(t *testing.T) {
	steps := []models.SequenceStep{
		{ID: 1, Position: 1, Condition: ConditionIfMessageContains, Keywords: `["precio"]`, NextOnTrue: uintPtr(2), NextOnFalse: uintPtr(3)},
		{ID: 2, Position: 2},
		{ID: 3, Position: 3},
	}
	e := NewEvaluator(&fakeMessages{last: &models.Message{Content: "hola"}})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.False(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(3), out.Next.ID)
}

func TestEvaluateKeywordConditionWithoutKeywordsIsFalseNotFatal(t *testing.T) {
	steps := []models.SequenceStep{
		{ID: 1, Position: 1, Condition: ConditionIfMessageContains, Keywords: `[]`},
		{ID: 2, Position: 2},
	}
	e := NewEvaluator(&fakeMessages{last: &models.Message{Content: "anything"}})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.False(t, out.ConditionMet)
	assert.ErrorIs(t, out.DataErr, ErrNoKeywords)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(2), out.Next.ID)
}

func TestEvaluateKeywordConditionWithoutInboundIsFalse(t *testing.T) {
	steps := []models.SequenceStep{
		{ID: 1, Position: 1, Condition: ConditionIfMessageContains, Keywords: `["si"]`},
		{ID: 2, Position: 2},
	}
	e := NewEvaluator(&fakeMessages{last: nil})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.False(t, out.ConditionMet)
	assert.NoError(t, out.DataErr)
}

func TestEvaluateUnknownConditionBehavesLikeNone(t *testing.T) {
	steps := threeSteps()
	steps[0].Condition = "someday_maybe"
	e := NewEvaluator(&fakeMessages{})

	out, err := e.Evaluate(context.Background(), &models.Contact{WaID: "1"}, steps, &steps[0])
	require.NoError(t, err)
	assert.True(t, out.ConditionMet)
	require.NotNil(t, out.Next)
	assert.Equal(t, uint(2), out.Next.ID)
}
