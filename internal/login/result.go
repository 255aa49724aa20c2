package login

import "github.com/wrale/oauth2-login-callback/internal/provider"

// Result is the data returned for a successful login. Field names are relied
// on by the browser dashboard and must stay stable.
type Result struct {
	User   User    `json:"user"`
	Guilds []Guild `json:"guilds"`
	Token  Token   `json:"token"`
}

// User is the sanitized profile. Avatar is a ready-to-use image URL.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator,omitempty"`
	Avatar        string  `json:"avatar"`
	Locale        *string `json:"locale"`
}

// Guild keeps only the fields the dashboard renders
type Guild struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon"`
	Permissions string  `json:"permissions,omitempty"`
}

// Token is the caller's own credential set. The client secret never appears here.
type Token struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	Scope        string  `json:"scope,omitempty"`
	ExpiresIn    *int64  `json:"expires_in"`
	RefreshToken *string `json:"refresh_token"`
}

func newResult(token *provider.Token, user *provider.User, guilds []provider.Guild) *Result {
	r := &Result{
		User: User{
			ID:            user.ID,
			Username:      user.Username,
			Discriminator: user.Discriminator,
			Avatar:        user.AvatarURL(),
			Locale:        optional(user.Locale),
		},
		Guilds: make([]Guild, 0, len(guilds)),
		Token: Token{
			AccessToken:  token.AccessToken,
			TokenType:    token.Type(),
			Scope:        token.Scope,
			RefreshToken: optional(token.RefreshToken),
		},
	}
	if token.ExpiresIn != 0 {
		expiresIn := token.ExpiresIn
		r.Token.ExpiresIn = &expiresIn
	}

	for _, g := range guilds {
		r.Guilds = append(r.Guilds, Guild{
			ID:          g.ID,
			Name:        g.Name,
			Icon:        optional(g.Icon),
			Permissions: g.Permissions,
		})
	}

	return r
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
