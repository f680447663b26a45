// Package ragquery provides a Go client for the ragquery HTTP API.
//
//	client, _ := ragquery.New("http://localhost:8000",
//	    ragquery.WithLogger(slog.Default()),
//	)
//	answer, _ := client.Query(ctx, "tell me about cats",
//	    ragquery.InSession("s1"),
//	)
//	vec, _ := client.Embed(ctx, "cats are great")
//
// Errors returned by the server are *APIError values; the request validation
// failures also match ErrMissingQuery and ErrMissingText with errors.Is.
package ragquery
