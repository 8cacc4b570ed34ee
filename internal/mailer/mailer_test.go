package mailer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type MockDialer struct{ mock.Mock }

func (m *MockDialer) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func TestShareMailer_SendShareLink(t *testing.T) {
	d := new(MockDialer)
	m := &ShareMailer{from: "noreply@locations.test", dialer: d, logger: logger.NewNop()}

	t.Run("Success", func(t *testing.T) {
		d.Mock = mock.Mock{}
		var sent *gomail.Message
		d.On("DialAndSend", mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(0).([]*gomail.Message)[0]
		}).Return(nil).Once()

		err := m.SendShareLink("friend@example.com", "Loft <3>", "https://app.test/locations/1?token=t&access=photos_only", domain.AccessPhotosOnly)
		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.Equal(t, []string{"friend@example.com"}, sent.GetHeader("To"))
		assert.Equal(t, []string{"noreply@locations.test"}, sent.GetHeader("From"))

		var buf bytes.Buffer
		_, err = sent.WriteTo(&buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "photos-only")
		d.AssertExpectations(t)
	})

	t.Run("Dial failure", func(t *testing.T) {
		d.Mock = mock.Mock{}
		d.On("DialAndSend", mock.Anything).Return(errors.New("connection refused")).Once()
		err := m.SendShareLink("friend@example.com", "Loft", "u", domain.AccessAdmin)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("No recipient", func(t *testing.T) {
		d.Mock = mock.Mock{}
		assert.Error(t, m.SendShareLink("", "Loft", "u", domain.AccessAdmin))
		d.AssertNotCalled(t, "DialAndSend", mock.Anything)
	})
}

func TestNewShareMailer_RequiresConfig(t *testing.T) {
	_, err := NewShareMailer(config.SMTPConfig{Host: "smtp.test"}, logger.NewNop())
	assert.Error(t, err)

	m, err := NewShareMailer(config.SMTPConfig{Host: "smtp.test", Port: 587, SenderEmail: "a@b.c"}, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", m.from)
}
