package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyRole     = "role"
	SessionKeyLoginAt  = "login_at"

	// FlashKeyProfileEdit parks a password-rejected profile edit so the form
	// can be redisplayed with the submitted values. Request-scoped via the
	// caller's own session, unlike the process-global scratch state it
	// replaces.
	FlashKeyProfileEdit = "flash_profile_edit"
)

func init() {
	// Register types that will be stored in sessions
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
	gob.Register(ProfileUpdate{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by SQLite.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession establishes a session for a user after password verification.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyUserID, int(user.ID))
	sm.Put(r.Context(), SessionKeyUsername, user.Username)
	sm.Put(r.Context(), SessionKeyRole, user.Role)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID retrieves the user ID from the session. Zero means anonymous.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// GetUserRole retrieves the user role from the session.
func (sm *SessionManager) GetUserRole(r *http.Request) entities.UserRole {
	role, ok := sm.Get(r.Context(), SessionKeyRole).(entities.UserRole)
	if !ok {
		return ""
	}
	return role
}

// PutProfileFlash parks a rejected profile edit in the caller's session.
func (sm *SessionManager) PutProfileFlash(r *http.Request, update ProfileUpdate) {
	sm.Put(r.Context(), FlashKeyProfileEdit, update)
}

// PopProfileFlash retrieves and clears a parked profile edit, if any.
func (sm *SessionManager) PopProfileFlash(r *http.Request) (ProfileUpdate, bool) {
	update, ok := sm.Pop(r.Context(), FlashKeyProfileEdit).(ProfileUpdate)
	return update, ok
}

// SessionLoadSave returns a Gin middleware that wraps scs LoadAndSave.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		switch sm.Status(ctx) {
		case scs.Modified:
			responseToken, expiry, err := sm.Commit(ctx)
			if err != nil {
				return
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     sm.Cookie.Name,
				Value:    responseToken,
				Path:     sm.Cookie.Path,
				Expires:  expiry,
				HttpOnly: sm.Cookie.HttpOnly,
				Secure:   sm.Cookie.Secure,
				SameSite: sm.Cookie.SameSite,
			})
		case scs.Destroyed:
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     sm.Cookie.Name,
				Value:    "",
				Path:     sm.Cookie.Path,
				Expires:  time.Unix(0, 0),
				HttpOnly: sm.Cookie.HttpOnly,
				Secure:   sm.Cookie.Secure,
				SameSite: sm.Cookie.SameSite,
			})
		}
	}
}

// PurgeExpired removes expired rows from the sessions table. Run on a
// schedule as housekeeping; scs also cleans up in the background.
func PurgeExpired(sqlDB *sql.DB) (int64, error) {
	result, err := sqlDB.Exec(`DELETE FROM sessions WHERE expiry < julianday('now')`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
