package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrAuth se devuelve cuando el venue rechaza las credenciales o no entrega
// un token de sesión.
var ErrAuth = errors.New("venue: authentication failed")

const sessionCookie = "session"

type sessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// sessionToken devuelve el token cacheado o abre una sesión nueva.
func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// invalidate descarta el token para que la próxima orden vuelva a autenticar.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

// authenticate hace POST sessions/. El token viene en la cookie "session" o,
// si no, en el campo token del cuerpo.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", fmt.Errorf("%w: missing credentials", ErrAuth)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newJSONRequest(ctx, "sessions/", sessionRequest{Username: c.username, Password: c.password}, "")
	})
	if err != nil {
		return "", fmt.Errorf("venue.authenticate: %w", err)
	}
	if resp.status != http.StatusOK && resp.status != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d: %s", ErrAuth, resp.status, string(resp.body))
	}

	for _, ck := range resp.cookies {
		if ck.Name == sessionCookie && ck.Value != "" {
			slog.Info("venue: authenticated")
			return ck.Value, nil
		}
	}

	var body sessionResponse
	if err := json.Unmarshal(resp.body, &body); err == nil && body.Token != "" {
		slog.Info("venue: authenticated")
		return body.Token, nil
	}
	return "", fmt.Errorf("%w: no session token in response", ErrAuth)
}
