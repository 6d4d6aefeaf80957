// Package client is the content-negotiating HTTP client.
//
// Request bodies are serialized and responses deserialized through a
// content.Registry, picking the converter by the kind of the Go value and
// the content type. Accept headers are built from every registered
// converter. Authorization (OAuth1 signing, OAuth2 bearer tokens) plugs in
// as an Authorizer wrapping the transport:
//
//	c := client.New(
//		client.WithAuthorizer(manager),
//		client.WithRetries(3, time.Second, 10*time.Second),
//	)
//	user, err := client.GetAs[User](ctx, c, "https://api.example.com/user")
package client
