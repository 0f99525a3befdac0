package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSenderRequiresCredentials(t *testing.T) {
	assert.Nil(t, NewWhatsAppSender(WhatsAppConfig{}))
	assert.Nil(t, NewWhatsAppSender(WhatsAppConfig{Token: "t"}))
	assert.Nil(t, NewWhatsAppSender(WhatsAppConfig{PhoneID: "p"}))
	assert.NotNil(t, NewWhatsAppSender(WhatsAppConfig{Token: "t", PhoneID: "p"}))
}

func TestWhatsAppSenderSendText(t *testing.T) {
	t.Run("posts the cloud API payload", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody sendTextRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		s := NewWhatsAppSender(WhatsAppConfig{Token: "secret", PhoneID: "12345"})
		s.baseURL = srv.URL

		require.NoError(t, s.SendText(context.Background(), "+4915100000001", "pickup at 9"))
		assert.Equal(t, "/12345/messages", gotPath)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "whatsapp", gotBody.MessagingProduct)
		assert.Equal(t, "+4915100000001", gotBody.To)
		assert.Equal(t, "pickup at 9", gotBody.Text.Body)
	})

	t.Run("surfaces API errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"invalid recipient"}}`, http.StatusBadRequest)
		}))
		defer srv.Close()

		s := NewWhatsAppSender(WhatsAppConfig{Token: "secret", PhoneID: "12345"})
		s.baseURL = srv.URL
		s.client.RetryMax = 0

		err := s.SendText(context.Background(), "nope", "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid recipient")
	})
}
