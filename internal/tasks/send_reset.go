package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/shelfwise/shelfwise/internal/entities"
	"github.com/shelfwise/shelfwise/internal/notify"
)

// SendResetTask delivers a password-reset email to one user.
type SendResetTask struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// Config returns the queue configuration for reset email dispatch.
// Retries stop well before the token itself expires.
func (t SendResetTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "send_reset",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     1 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendResetProcessor creates a processor that mails the reset link.
func SendResetProcessor(mailer notify.Mailer, baseURL string) backlite.QueueProcessor[SendResetTask] {
	return func(ctx context.Context, task SendResetTask) error {
		user := &entities.User{
			ID:    task.UserID,
			Name:  task.Name,
			Email: task.Email,
		}
		resetURL := fmt.Sprintf("%s/reset-password/%s", baseURL, task.Token)
		if err := mailer.SendPasswordReset(user, resetURL); err != nil {
			return fmt.Errorf("send reset mail to user %d: %w", task.UserID, err)
		}
		log.Printf("[TASK] Sent password reset email to user %d", task.UserID)
		return nil
	}
}

// NewSendResetQueue creates a backlite queue for reset email dispatch.
func NewSendResetQueue(mailer notify.Mailer, baseURL string) backlite.Queue {
	return backlite.NewQueue(SendResetProcessor(mailer, baseURL))
}

// ResetDispatcher enqueues reset emails for asynchronous delivery. It
// implements the auth service's mailer boundary.
type ResetDispatcher struct {
	client *Client
}

// NewResetDispatcher creates a dispatcher backed by the task queue.
func NewResetDispatcher(client *Client) *ResetDispatcher {
	return &ResetDispatcher{client: client}
}

// SendPasswordReset enqueues the dispatch task.
func (d *ResetDispatcher) SendPasswordReset(user *entities.User, token string) error {
	_, err := d.client.Add(SendResetTask{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Token:  token,
	}).Save()
	return err
}
