package auth

import (
	"net/http"
	"time"

	"travyy/internal/models"

	"github.com/gorilla/sessions"
)

const adminSessionName = "travyy_admin"

// AdminSessions is the signed-cookie session used by the admin dashboard.
type AdminSessions struct {
	store *sessions.CookieStore
}

func NewAdminSessions(key string, maxAge time.Duration, secure bool) *AdminSessions {
	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &AdminSessions{store: store}
}

func (a *AdminSessions) Start(w http.ResponseWriter, r *http.Request, user *models.User) error {
	sess, _ := a.store.Get(r, adminSessionName)
	sess.Values["user_id"] = user.ID
	sess.Values["role"] = string(user.Role)
	sess.Values["login_at"] = time.Now().Unix()
	return sess.Save(r, w)
}

// Current returns the identity stored in the request's session cookie, if any.
func (a *AdminSessions) Current(r *http.Request) (Identity, bool) {
	sess, err := a.store.Get(r, adminSessionName)
	if err != nil || sess.IsNew {
		return Identity{}, false
	}
	userID, _ := sess.Values["user_id"].(string)
	role, _ := sess.Values["role"].(string)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{UserID: userID, Role: models.Role(role), Source: SourceSession}, true
}

func (a *AdminSessions) End(w http.ResponseWriter, r *http.Request) error {
	sess, _ := a.store.Get(r, adminSessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
