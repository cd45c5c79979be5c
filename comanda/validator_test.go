package comanda

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

func TestValidateAccumulatesAllViolations(t *testing.T) {
	// Arrange
	payload := decode(t, `{}`)

	// Act
	_, violations := Validate(payload)

	// Assert: one message per missing field, all reported in one pass.
	assert.Len(t, violations, 3)
}

func TestValidateHappyPath(t *testing.T) {
	payload := decode(t, `{"customer":"  Ana ","items":[" Pizza","Suco "],"table":5}`)

	draft, violations := Validate(payload)

	require.Empty(t, violations)
	assert.Equal(t, "Ana", draft.Customer)
	assert.Equal(t, []string{"Pizza", "Suco"}, draft.Items)
	assert.Equal(t, 5, draft.Table)
}

func TestValidateTableCoercion(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  int
		valid bool
	}{
		{"numeric string", `{"customer":"Ana","items":["Pizza"],"table":"7"}`, 7, true},
		{"integer", `{"customer":"Ana","items":["Pizza"],"table":3}`, 3, true},
		{"zero", `{"customer":"Ana","items":["Pizza"],"table":0}`, 0, false},
		{"negative", `{"customer":"Ana","items":["Pizza"],"table":-1}`, 0, false},
		{"non numeric string", `{"customer":"Ana","items":["Pizza"],"table":"abc"}`, 0, false},
		{"null", `{"customer":"Ana","items":["Pizza"],"table":null}`, 0, false},
		{"boolean", `{"customer":"Ana","items":["Pizza"],"table":true}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, violations := Validate(decode(t, tt.body))

			if tt.valid {
				require.Empty(t, violations)
				assert.Equal(t, tt.want, draft.Table)
			} else {
				require.Len(t, violations, 1)
				assert.Equal(t, msgTable, violations[0])
			}
		})
	}
}

func TestValidateItems(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing", `{"customer":"Ana","table":1}`, msgItems},
		{"not a list", `{"customer":"Ana","items":"Pizza","table":1}`, msgItems},
		{"empty list", `{"customer":"Ana","items":[],"table":1}`, msgItems},
		{"blank element", `{"customer":"Ana","items":["Pizza","  "],"table":1}`, msgItemText},
		{"non text element", `{"customer":"Ana","items":["Pizza",2],"table":1}`, msgItemText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, violations := Validate(decode(t, tt.body))

			require.Len(t, violations, 1)
			assert.Equal(t, tt.msg, violations[0])
		})
	}
}

func TestValidateCustomer(t *testing.T) {
	tests := []string{
		`{"items":["Pizza"],"table":1}`,
		`{"customer":"","items":["Pizza"],"table":1}`,
		`{"customer":"   ","items":["Pizza"],"table":1}`,
		`{"customer":42,"items":["Pizza"],"table":1}`,
	}

	for _, body := range tests {
		_, violations := Validate(decode(t, body))

		require.Len(t, violations, 1, body)
		assert.Equal(t, msgCustomer, violations[0], body)
	}
}

func TestValidateHasNoSideEffects(t *testing.T) {
	payload := decode(t, `{"customer":" Ana ","items":[" Pizza "],"table":"2"}`)

	_, _ = Validate(payload)

	assert.Equal(t, " Ana ", payload["customer"])
	assert.Equal(t, " Pizza ", payload["items"].([]any)[0])
}
