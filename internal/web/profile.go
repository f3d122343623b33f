package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ProfileCookie names the cookie that identifies a browser profile.
const ProfileCookie = "pai_profile"

const profileMaxAge = 365 * 24 * 60 * 60

type profileKey struct{}

// withProfile attaches the caller's profile ID to the request context,
// issuing a new one when the cookie is missing or malformed.
func withProfile(w http.ResponseWriter, r *http.Request) *http.Request {
	id := ""
	if c, err := r.Cookie(ProfileCookie); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id = parsed.String()
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     ProfileCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   profileMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return r.WithContext(context.WithValue(r.Context(), profileKey{}, id))
}

func profileFrom(ctx context.Context) string {
	id, _ := ctx.Value(profileKey{}).(string)
	return id
}
