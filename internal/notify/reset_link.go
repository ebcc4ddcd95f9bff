package notify

import (
	"fmt"

	"github.com/shelfwise/shelfwise/internal/entities"
)

// ResetLinkSender sends reset emails inline, for deployments running
// without the task queue. It satisfies the auth service's mailer boundary.
type ResetLinkSender struct {
	mailer  Mailer
	baseURL string
}

func NewResetLinkSender(mailer Mailer, baseURL string) *ResetLinkSender {
	return &ResetLinkSender{mailer: mailer, baseURL: baseURL}
}

func (s *ResetLinkSender) SendPasswordReset(user *entities.User, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password/%s", s.baseURL, token)
	return s.mailer.SendPasswordReset(user, resetURL)
}
