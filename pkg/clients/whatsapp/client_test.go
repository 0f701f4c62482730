package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var got textPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: server.URL + "/", APIVersion: "v21.0", AccessToken: "token", PhoneNumberID: "12345"}, nil)

	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "628111", Body: "Stok Rumput tinggal 15kg"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "628111", got.To)
	assert.Equal(t, "Stok Rumput tinggal 15kg", got.Text.Body)
}

func TestSendTextMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer server.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: server.URL, APIVersion: "v21.0", PhoneNumberID: "12345"}, nil)

	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "628111", Body: "halo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=190")
	assert.Contains(t, err.Error(), "Invalid OAuth access token")

	_, err = c.SendTextMessage(context.Background(), SendTextMessageRequest{To: " ", Body: "halo"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
