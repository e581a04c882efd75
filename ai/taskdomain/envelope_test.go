package taskdomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestNormalizeNilEnvelope(t *testing.T) {
	result := Normalize(nil)

	assert.False(t, result.OK)
	assert.Equal(t, 500, result.Code)
	assert.Equal(t, "empty response", result.Message)
}

func TestNormalizeExtractsErrorField(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 403, Body: map[string]string{"error": "You are not a member of this project"}})

	assert.False(t, result.OK)
	assert.Equal(t, 403, result.Code)
	assert.Equal(t, "You are not a member of this project", result.Message)
}

func TestNormalizeFailureWithoutErrorField(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 500, Body: map[string]string{"detail": "boom"}})

	assert.False(t, result.OK)
	assert.Equal(t, "operation failed", result.Message)
}

func TestNormalizeStringBodyPassthrough(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 200, Body: `{"id": 7, "ticket_id": "CDW-007"}`})

	assert.True(t, result.OK)
	assert.Equal(t, "CDW-007", gjson.Get(result.Payload, "ticket_id").String())
}

func TestNormalizeWrapsPlainStringBody(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 200, Body: "all good"})

	assert.True(t, result.OK)
	assert.Equal(t, "all good", gjson.Get(result.Payload, "message").String())
}

func TestNormalizeObjectBody(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 200, Body: map[string]any{"id": 3}})

	assert.True(t, result.OK)
	assert.Equal(t, int64(3), gjson.Get(result.Payload, "id").Int())
}

func TestNormalizeNilBody(t *testing.T) {
	result := Normalize(&Envelope{StatusCode: 200, Body: nil})

	assert.True(t, result.OK)
	assert.Equal(t, "{}", result.Payload)
}
