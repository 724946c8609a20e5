package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadItems(t *testing.T) {
	p := payload(t, `{"items":[{"product":"CHEMISE - BLACK","quantity":2,"img":"a.png"}]}`)
	items, err := p.Items()
	require.NoError(t, err)
	assert.Equal(t, []Item{{Product: "CHEMISE - BLACK", Quantity: 2, Img: "a.png"}}, items)

	_, err = payload(t, `{"items":"nope"}`).Items()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestPayloadWithOverridesServerFields(t *testing.T) {
	p := payload(t, `{"id":"mine","status":"confirmed","timestamp":1,"company":"Topolina"}`)
	out := p.With("ORD-5", StatusPending, 5)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ORD-5","status":"pending","timestamp":5,"company":"Topolina"}`, string(b))
	assert.Equal(t, json.RawMessage(`"mine"`), p["id"], "input must not be modified")
}

func TestRecordDocumentUsesStatusColumn(t *testing.T) {
	rec := Record{ID: "ORD-1", Status: StatusConfirmed, Data: payload(t, `{"id":"ORD-1","status":"pending"}`)}
	b, err := json.Marshal(rec.Document())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ORD-1","status":"confirmed"}`, string(b))
}
