package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const cookieName = "trainerID"

// Handler assigns anonymous user identities. Progress tracking needs nothing
// more than a stable cookie value per browser.
type Handler struct {
	log *zap.SugaredLogger
}

func NewIdentityHandler(log *zap.SugaredLogger) *Handler {
	return &Handler{log: log}
}

// EnsureUserID returns the caller's trainer id, issuing a fresh cookie when
// none is present.
func (h *Handler) EnsureUserID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(cookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.log.Infof("issued new trainer id %s", id)
	return id
}
