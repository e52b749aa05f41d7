package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinConfidence(t *testing.T) {
	levels := []Confidence{Low, Medium, High}
	for _, a := range levels {
		for _, b := range levels {
			for _, c := range levels {
				got := MinConfidence(a, b, c)
				want := a
				if b < want {
					want = b
				}
				if c < want {
					want = c
				}
				assert.Equal(t, want, got, "min(%s,%s,%s)", a, b, c)
			}
		}
	}
	assert.Equal(t, Low, MinConfidence())
}

func TestConfidence_TextRoundTrip(t *testing.T) {
	data, err := json.Marshal(map[string]Confidence{"stage": Medium})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"medium"}`, string(data))

	var back map[string]Confidence
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Medium, back["stage"])

	_, err = ParseConfidence("certain")
	assert.Error(t, err)
}
