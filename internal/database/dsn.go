package database

import (
	"net"
	"net/url"
)

// PostgresDSN assembles a postgres:// URL from discrete connection fields.
// User info and database name are escaped, so passwords may hold any byte.
// TLS is off; use a full DATABASE_URL for anything beyond local setups.
func PostgresDSN(user, password, host, port, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": {"disable"}}.Encode(),
	}
	return u.String()
}
