package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, phone, msg string) error {
	return m.Called(ctx, phone, msg).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

func TestDeliver_PhoneGoesToSMS(t *testing.T) {
	sms := &mockSMSSender{}
	sms.On("SendSMS", mock.Anything, "+919876543210", mock.MatchedBy(func(b string) bool {
		return bytes.Contains([]byte(b), []byte("482913")) && bytes.Contains([]byte(b), []byte("5 minutes"))
	})).Return(nil)

	r := NewRouter(5*time.Minute, WithSMS(sms))
	require.NoError(t, r.Deliver(context.Background(), " +919876543210 ", "482913"))
	sms.AssertExpectations(t)
}

func TestDeliver_EmailGoesToMailer(t *testing.T) {
	ml := &mockMailer{}
	ml.On("SendEmail", "a@b.com", "Your verification code", mock.Anything).Return(nil)

	r := NewRouter(5*time.Minute, WithMail(ml))
	require.NoError(t, r.Deliver(context.Background(), "a@b.com", "000123"))
	ml.AssertExpectations(t)
}

func TestDeliver_PropagatesChannelError(t *testing.T) {
	sms := &mockSMSSender{}
	sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("sns throttled"))

	r := NewRouter(time.Minute, WithSMS(sms))
	assert.ErrorContains(t, r.Deliver(context.Background(), "+15550001111", "111111"), "sns throttled")
}

func TestDeliver_SimulatedWithoutChannel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewRouter(time.Minute, WithLogger(l))
	require.NoError(t, r.Deliver(context.Background(), "+15550001111", "222222"))
	assert.Contains(t, buf.String(), "SIMULATED OTP delivery")
	assert.Contains(t, buf.String(), "*******1111")
	assert.NotContains(t, buf.String(), "222222")
}

func TestDeliver_SimulatedRevealsInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	r := NewRouter(time.Minute, WithLogger(l), RevealSimulated(true))
	require.NoError(t, r.Deliver(context.Background(), "", "333333"))
	assert.Contains(t, buf.String(), "otp=333333")
	assert.Contains(t, buf.String(), "(none)")
}

func TestMaskDestination(t *testing.T) {
	assert.Equal(t, "j***@example.com", maskDestination("jane@example.com"))
	assert.Equal(t, "****", maskDestination("123"))
}
