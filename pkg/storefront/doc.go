/*
Package storefront is the client runtime for the storefront API: the session
store, the two request clients and the renewal coordinator.

# Sessions

A SessionStore owns the user's identity and token pair and persists them
through a persist.Adapter under the "session" key. It is the only place
credentials live; everything else reads them per call.

	sessions := storefront.NewSessionStore(ctx, adapter, logger)
	client := storefront.NewClient("https://shop.example.com/api", sessions)

	user, err := client.Login(ctx, "alice", "secret")

# Requesters

Client.Authed attaches "Authorization: Bearer <access>" and Client.Public
never sends credentials:

	var out []commerce.Product
	err := client.Public().Do(ctx, http.MethodGet, "/products/", nil, &out)

Every call carries an X-Request-ID shared by all attempts of that call.

# Renewal

When an authenticated call is answered with 401, the client asks the Renewer
for a fresh access token and replays the call exactly once with it. The
Renewer runs at most one renewal per refresh token; concurrent callers wait
for the one in flight and receive the same result. A replay answered with
401 again is returned as an *AuthError without another renewal.

Renewal runs under its own timeout (DefaultRenewalTimeout), independent of
the caller's context. When it fails, the session is cleared and callers get
an *AuthError, which matches ErrAuth:

	if errors.Is(err, storefront.ErrAuth) {
		// send the user to the login page
	}

Guest routes (DefaultGuestRoutes, see WithGuestRoutes) are the exception: a
failed renewal on a guest route returns the server's original error and
leaves the session alone.

Access tokens that are JWTs are also renewed proactively shortly before
their exp claim (DefaultExpirySkew), and a Keeper can do so in the
background.

# Errors

Non-2xx responses are *APIError values that match ErrValidation, ErrAuth,
ErrNotFound, ErrConflict or ErrServer according to their status code.
Transport failures are *NetworkError values matching ErrNetwork.
*/
package storefront
