package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise/internal/entities"
)

type captureMailer struct {
	sent chan string
}

func (m *captureMailer) SendPasswordReset(user *entities.User, resetURL string) error {
	m.sent <- resetURL
	return nil
}

func TestSendResetTaskConfig(t *testing.T) {
	task := SendResetTask{UserID: 7}
	cfg := task.Config()

	assert.Equal(t, "send_reset", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, 1*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

func TestResetDispatcher(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	mailer := &captureMailer{sent: make(chan string, 1)}
	client.Register(NewSendResetQueue(mailer, "https://shelfwise.test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	dispatcher := NewResetDispatcher(client)
	user := &entities.User{ID: 7, Name: "Reader", Email: "reader@example.com"}
	err = dispatcher.SendPasswordReset(user, "tok-abc")
	require.NoError(t, err)

	select {
	case url := <-mailer.sent:
		assert.Equal(t, "https://shelfwise.test/reset-password/tok-abc", url)
	case <-time.After(5 * time.Second):
		t.Fatal("reset email was not dispatched within timeout")
	}
}
