package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRequest(t *testing.T) {
	m := Message{Body: []byte(`{"bundle_id":"b-1","user_id":"user-1"}`), ReceiptHandle: "1"}

	req, err := m.Request()
	require.NoError(t, err)
	assert.Equal(t, "b-1", req.BundleID)
	assert.Equal(t, "user-1", req.UserID)
}

func TestMessageRequest_MalformedBody(t *testing.T) {
	m := Message{Body: []byte(`{not json`)}
	_, err := m.Request()
	assert.Error(t, err)
}

func TestMessageRequest_MissingBundleID(t *testing.T) {
	m := Message{Body: []byte(`{"user_id":"user-1"}`)}
	_, err := m.Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle_id")
}
