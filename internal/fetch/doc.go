// Package fetch provides a retrying HTTP client for single image downloads.
//
// This package handles:
//   - Bounded-time GET requests
//   - Retry with exponential backoff for transport failures and timeouts
//   - Failure classification (definitive status, network, timeout, short body)
//   - Content-Type defaulting for servers that omit the header
//
// # Usage
//
//	client := fetch.NewClient(fetch.Options{
//	    Timeout:    30 * time.Second,
//	    MaxRetries: 3,
//	    BaseDelay:  2 * time.Second,
//	})
//
//	res, err := client.Fetch(ctx, url)
//	// res.Body, res.ContentType
//
// Definitive HTTP error responses (status 400-599) are never retried: the
// server answered, and asking again will not change the answer. Only
// transport failures and timeouts retry.
package fetch
